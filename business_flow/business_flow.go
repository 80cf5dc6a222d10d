// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAuthUserDTO converts a user model to AuthUserDTO for authentication responses
func ToAuthUserDTO(user models.User) dto.AuthUserDTO {
	return dto.AuthUserDTO{
		ID:         user.ID,
		UUID:       user.UUID.String(),
		UniqueID:   user.UniqueID,
		BranchCode: user.Branch.Code,
		Role:       user.Role,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Mobile:     user.Mobile,
		Email:      user.Email,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}

// ToUserDTO converts a user model to UserDTO for API responses
func ToUserDTO(user models.User) dto.UserDTO {
	d := dto.UserDTO{
		ID:         user.ID,
		UUID:       user.UUID.String(),
		UniqueID:   user.UniqueID,
		BranchCode: user.Branch.Code,
		BranchName: user.Branch.Name,
		Role:       user.Role,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Mobile:     user.Mobile,
		Email:      user.Email,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		d.LastLoginAt = utils.ToPtr(user.LastLoginAt.Format(time.RFC3339))
	}
	return d
}

// ToSessionDTO converts a session model to SessionDTO
func ToSessionDTO(session models.UserSession) dto.SessionDTO {
	return dto.SessionDTO{
		AccessToken:  session.SessionToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToBranchDTO converts a branch model to BranchDTO. The caller supplies the
// last allocated sequence since the counter lives in its own table.
func ToBranchDTO(branch models.Branch, lastSequence int64) dto.BranchDTO {
	return dto.BranchDTO{
		ID:           branch.ID,
		UUID:         branch.UUID.String(),
		Code:         branch.Code,
		Name:         branch.Name,
		Address:      branch.Address,
		Phone:        branch.Phone,
		IsActive:     branch.IsActive,
		LastSequence: lastSequence,
		CreatedAt:    branch.CreatedAt.Format(time.RFC3339),
	}
}

// ToLoanDTO converts a loan model to LoanDTO with derived balance figures
func ToLoanDTO(loan models.Loan, userUniqueID, branchCode string, totalPaid int64) dto.LoanDTO {
	d := dto.LoanDTO{
		ID:           loan.ID,
		UUID:         loan.UUID.String(),
		UserUniqueID: userUniqueID,
		BranchCode:   branchCode,
		Principal:    loan.Principal,
		InterestRate: loan.InterestRate,
		TermMonths:   loan.TermMonths,
		Currency:     loan.Currency,
		Status:       loan.Status,
		TotalPayable: loan.TotalPayable(),
		TotalPaid:    totalPaid,
		Balance:      loan.TotalPayable() - totalPaid,
		CreatedAt:    loan.CreatedAt.Format(time.RFC3339),
	}
	if loan.DisbursedAt != nil {
		d.DisbursedAt = utils.ToPtr(loan.DisbursedAt.Format(time.RFC3339))
	}
	if loan.ClosedAt != nil {
		d.ClosedAt = utils.ToPtr(loan.ClosedAt.Format(time.RFC3339))
	}
	return d
}

// ToLoanPaymentDTO converts a payment model to LoanPaymentDTO
func ToLoanPaymentDTO(payment models.LoanPayment) dto.LoanPaymentDTO {
	return dto.LoanPaymentDTO{
		ID:       payment.ID,
		UUID:     payment.UUID.String(),
		Amount:   payment.Amount,
		Currency: payment.Currency,
		Method:   payment.Method,
		Note:     payment.Note,
		PaidAt:   payment.PaidAt.Format(time.RFC3339),
	}
}
