package dto

// CreateUserRequest represents the payload to create a user in a branch
type CreateUserRequest struct {
	BranchCode string `json:"branch_code" validate:"required,min=2,max=5,alphanum" example:"DH"`
	FirstName  string `json:"first_name" validate:"required,max=100,alpha_space"`
	LastName   string `json:"last_name" validate:"required,max=100,alpha_space"`
	Mobile     string `json:"mobile" validate:"required,mobile_format"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,password_strength"`
	Role       string `json:"role,omitempty" validate:"omitempty,oneof=admin manager officer"`
}

// CreateUserResponse represents the response after creating a user
type CreateUserResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

// UserDTO represents user data for API responses
type UserDTO struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	UniqueID    string  `json:"unique_id" example:"DH-0001"`
	BranchCode  string  `json:"branch_code"`
	BranchName  string  `json:"branch_name,omitempty"`
	Role        string  `json:"role"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Mobile      string  `json:"mobile"`
	Email       string  `json:"email"`
	IsActive    *bool   `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
}

// UpdateUserRequest represents the payload to update a user. Nil fields are
// left untouched. The unique ID and branch are immutable.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100,alpha_space"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100,alpha_space"`
	Mobile    *string `json:"mobile,omitempty" validate:"omitempty,mobile_format"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8,password_strength"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=admin manager officer"`
}

// UpdateUserResponse represents the response after updating a user
type UpdateUserResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

// ListUsersRequest represents filter parameters for listing users
type ListUsersRequest struct {
	BranchCode string `query:"branch_code" validate:"omitempty,min=2,max=5,alphanum"`
	Role       string `query:"role" validate:"omitempty,oneof=admin manager officer"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// ListUsersResponse represents the response for listing users
type ListUsersResponse struct {
	Message string    `json:"message"`
	Users   []UserDTO `json:"users"`
	Total   int64     `json:"total"`
}

// GetUserResponse represents the response for fetching a single user
type GetUserResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

// DeactivateUserResponse represents the response after deactivating a user
type DeactivateUserResponse struct {
	Message string `json:"message"`
}
