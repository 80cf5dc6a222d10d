// Package businessflow contains the core business logic and use cases for branch operations
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound        = errors.New("user not found")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrMobileAlreadyExists = errors.New("mobile number already exists")
	ErrRoleNotPermitted    = errors.New("role does not permit this operation")

	// Branch-related errors
	ErrBranchNotFound          = errors.New("branch not found")
	ErrBranchInactive          = errors.New("branch is inactive")
	ErrBranchCodeAlreadyExists = errors.New("branch code already exists")
	ErrBranchCodeRequired      = errors.New("branch code is required")

	// Session-related errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")

	// Loan-related errors
	ErrLoanNotFound          = errors.New("loan not found")
	ErrLoanNotOpen           = errors.New("loan is not open for this operation")
	ErrLoanNotPending        = errors.New("loan is not pending approval")
	ErrLoanAlreadyClosed     = errors.New("loan is already closed")
	ErrPrincipalTooLow       = errors.New("loan principal is below the minimum")
	ErrTermTooLong           = errors.New("loan term exceeds the maximum")
	ErrPaymentExceedsBalance = errors.New("payment exceeds the outstanding balance")

	// Cache errors
	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsMobileAlreadyExists(err error) bool {
	return errors.Is(err, ErrMobileAlreadyExists)
}

func IsRoleNotPermitted(err error) bool {
	return errors.Is(err, ErrRoleNotPermitted)
}

func IsBranchNotFound(err error) bool {
	return errors.Is(err, ErrBranchNotFound)
}

func IsBranchInactive(err error) bool {
	return errors.Is(err, ErrBranchInactive)
}

func IsBranchCodeAlreadyExists(err error) bool {
	return errors.Is(err, ErrBranchCodeAlreadyExists)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsLoanNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound)
}

func IsLoanNotOpen(err error) bool {
	return errors.Is(err, ErrLoanNotOpen)
}

func IsLoanNotPending(err error) bool {
	return errors.Is(err, ErrLoanNotPending)
}

func IsPaymentExceedsBalance(err error) bool {
	return errors.Is(err, ErrPaymentExceedsBalance)
}
