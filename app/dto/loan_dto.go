package dto

// RequestLoanRequest represents the payload to open a loan application
type RequestLoanRequest struct {
	UserUniqueID string  `json:"user_unique_id" validate:"required,min=4,max=20" example:"DH-0001"`
	Principal    int64   `json:"principal" validate:"required,min=1" example:"5000000"`
	InterestRate float64 `json:"interest_rate" validate:"required,min=0,max=100" example:"12.5"`
	TermMonths   int     `json:"term_months" validate:"required,min=1,max=120" example:"24"`
}

// LoanDTO represents loan data for API responses
type LoanDTO struct {
	ID           uint    `json:"id"`
	UUID         string  `json:"uuid"`
	UserUniqueID string  `json:"user_unique_id" example:"DH-0001"`
	BranchCode   string  `json:"branch_code" example:"DH"`
	Principal    int64   `json:"principal"`
	InterestRate float64 `json:"interest_rate"`
	TermMonths   int     `json:"term_months"`
	Currency     string  `json:"currency" example:"BDT"`
	Status       string  `json:"status" example:"pending"`
	TotalPayable int64   `json:"total_payable"`
	TotalPaid    int64   `json:"total_paid"`
	Balance      int64   `json:"balance"`
	DisbursedAt  *string `json:"disbursed_at,omitempty"`
	ClosedAt     *string `json:"closed_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// LoanPaymentDTO represents a payment entry for API responses
type LoanPaymentDTO struct {
	ID       uint    `json:"id"`
	UUID     string  `json:"uuid"`
	Amount   int64   `json:"amount"`
	Currency string  `json:"currency"`
	Method   string  `json:"method" example:"cash"`
	Note     *string `json:"note,omitempty"`
	PaidAt   string  `json:"paid_at"`
}

// RequestLoanResponse represents the response after a loan application
type RequestLoanResponse struct {
	Message string  `json:"message"`
	Loan    LoanDTO `json:"loan"`
}

// ApproveLoanResponse represents the response after loan approval
type ApproveLoanResponse struct {
	Message string  `json:"message"`
	Loan    LoanDTO `json:"loan"`
}

// RejectLoanRequest represents the payload to reject a loan
type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RejectLoanResponse represents the response after loan rejection
type RejectLoanResponse struct {
	Message string  `json:"message"`
	Loan    LoanDTO `json:"loan"`
}

// RecordPaymentRequest represents the payload to record a loan payment
type RecordPaymentRequest struct {
	Amount int64   `json:"amount" validate:"required,min=1"`
	Method string  `json:"method" validate:"required,oneof=cash bank mobile"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// RecordPaymentResponse represents the response after recording a payment
type RecordPaymentResponse struct {
	Message string         `json:"message"`
	Payment LoanPaymentDTO `json:"payment"`
	Loan    LoanDTO        `json:"loan"`
}

// GetLoanResponse represents the response for fetching a loan with payments
type GetLoanResponse struct {
	Message  string           `json:"message"`
	Loan     LoanDTO          `json:"loan"`
	Payments []LoanPaymentDTO `json:"payments"`
}

// ListLoansRequest represents filter parameters for listing loans
type ListLoansRequest struct {
	BranchCode string `query:"branch_code" validate:"omitempty,min=2,max=5,alphanum"`
	Status     string `query:"status" validate:"omitempty,oneof=pending approved active closed rejected"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// ListLoansResponse represents the response for listing loans
type ListLoansResponse struct {
	Message string    `json:"message"`
	Loans   []LoanDTO `json:"loans"`
	Total   int64     `json:"total"`
}
