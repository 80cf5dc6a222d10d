package dto

// CreateBranchRequest represents the payload to register a branch
type CreateBranchRequest struct {
	Code    string  `json:"code" validate:"required,min=2,max=5,alphanum" example:"BOG"`
	Name    string  `json:"name" validate:"required,max=100" example:"Bogra Branch"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
}

// UpdateBranchRequest represents the payload to update branch details
type UpdateBranchRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BranchDTO represents branch data for API responses
type BranchDTO struct {
	ID           uint    `json:"id"`
	UUID         string  `json:"uuid"`
	Code         string  `json:"code" example:"DH"`
	Name         string  `json:"name"`
	Address      *string `json:"address,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	IsActive     *bool   `json:"is_active"`
	LastSequence int64   `json:"last_sequence" example:"42"`
	CreatedAt    string  `json:"created_at"`
}

// CreateBranchResponse represents the response after creating a branch
type CreateBranchResponse struct {
	Message string    `json:"message"`
	Branch  BranchDTO `json:"branch"`
}

// UpdateBranchResponse represents the response after updating a branch
type UpdateBranchResponse struct {
	Message string    `json:"message"`
	Branch  BranchDTO `json:"branch"`
}

// DeactivateBranchResponse represents the response after deactivating a branch
type DeactivateBranchResponse struct {
	Message string `json:"message"`
}

// ListBranchesResponse represents the response for listing branches
type ListBranchesResponse struct {
	Message  string      `json:"message"`
	Branches []BranchDTO `json:"branches"`
	Total    int64       `json:"total"`
}

// GetBranchResponse represents the response for fetching a single branch
type GetBranchResponse struct {
	Message string    `json:"message"`
	Branch  BranchDTO `json:"branch"`
}
