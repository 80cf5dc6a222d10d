// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=255" example:"officer@branch.example or +8801712345678"`
	Password   string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// RegisterRequest represents the signup form data. Self-registered accounts
// always start as officers; elevated roles go through the manager-gated user
// administration endpoints.
type RegisterRequest struct {
	BranchCode string `json:"branch_code" validate:"required,min=2,max=5,alphanum" example:"DH"`
	FirstName  string `json:"first_name" validate:"required,max=100,alpha_space" example:"Rahim"`
	LastName   string `json:"last_name" validate:"required,max=100,alpha_space" example:"Uddin"`
	Mobile     string `json:"mobile" validate:"required,mobile_format" example:"+8801712345678"`
	Email      string `json:"email" validate:"required,email,max=255" example:"rahim@branch.example"`
	Password   string `json:"password" validate:"required,min=8,password_strength" example:"SecurePass123!"`
}

// AuthUserDTO represents user data for authentication responses
type AuthUserDTO struct {
	ID         uint   `json:"id"`
	UUID       string `json:"uuid"`
	UniqueID   string `json:"unique_id" example:"DH-0001"`
	BranchCode string `json:"branch_code" example:"DH"`
	Role       string `json:"role" example:"officer"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Mobile     string `json:"mobile"`
	Email      string `json:"email"`
	IsActive   *bool  `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

// SessionDTO represents issued tokens for API responses
type SessionDTO struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	TokenType    string  `json:"token_type" example:"Bearer"`
	ExpiresIn    int     `json:"expires_in" example:"86400"`
	CreatedAt    string  `json:"created_at"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message string      `json:"message"`
	User    AuthUserDTO `json:"user"`
	Session SessionDTO  `json:"session"`
}

// RegisterResponse represents the response after successful registration
type RegisterResponse struct {
	Message string      `json:"message"`
	User    AuthUserDTO `json:"user"`
	Session SessionDTO  `json:"session"`
}

// RefreshTokenRequest represents the request to rotate tokens
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,min=10"`
}

// RefreshTokenResponse represents the response with fresh tokens
type RefreshTokenResponse struct {
	Message string     `json:"message"`
	Session SessionDTO `json:"session"`
}

// LogoutResponse represents the response after logout
type LogoutResponse struct {
	Message string `json:"message"`
}
