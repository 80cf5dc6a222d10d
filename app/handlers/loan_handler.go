package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/app/middleware"
	businessflow "github.com/openclerk/branch-erp/business_flow"
)

// LoanHandlerInterface defines the contract for loan handlers
type LoanHandlerInterface interface {
	RequestLoan(c fiber.Ctx) error
	ApproveLoan(c fiber.Ctx) error
	RejectLoan(c fiber.Ctx) error
	RecordPayment(c fiber.Ctx) error
	GetLoan(c fiber.Ctx) error
	ListLoans(c fiber.Ctx) error
}

// LoanHandler handles loan lifecycle HTTP requests
type LoanHandler struct {
	loanFlow  businessflow.LoanFlow
	validator *validator.Validate
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanFlow businessflow.LoanFlow) *LoanHandler {
	handler := &LoanHandler{
		loanFlow:  loanFlow,
		validator: validator.New(),
	}

	registerCustomValidations(handler.validator)

	return handler
}

func (h *LoanHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LoanHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RequestLoan opens a pending loan application
func (h *LoanHandler) RequestLoan(c fiber.Ctx) error {
	var req dto.RequestLoanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	actor, _ := middleware.GetCurrentUserFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.loanFlow.RequestLoan(h.createRequestContext(c, "/api/v1/loans"), &req, actor, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}

		log.Println("Loan request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Loan request failed", "REQUEST_LOAN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, fiber.Map{
		"loan": result.Loan,
	})
}

// ApproveLoan activates a pending loan
func (h *LoanHandler) ApproveLoan(c fiber.Ctx) error {
	loanUUID := c.Params("uuid")
	if loanUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Loan UUID is required", "INVALID_REQUEST", nil)
	}

	actor, _ := middleware.GetCurrentUserFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.loanFlow.ApproveLoan(h.createRequestContext(c, "/api/v1/loans/:uuid/approve"), loanUUID, actor, metadata)
	if err != nil {
		if businessflow.IsLoanNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Loan not found", "LOAN_NOT_FOUND", nil)
		}
		if businessflow.IsLoanNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Loan is not pending approval", "LOAN_NOT_PENDING", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("Loan approval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Loan approval failed", "APPROVE_LOAN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"loan": result.Loan,
	})
}

// RejectLoan declines a pending loan
func (h *LoanHandler) RejectLoan(c fiber.Ctx) error {
	loanUUID := c.Params("uuid")
	if loanUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Loan UUID is required", "INVALID_REQUEST", nil)
	}

	var req dto.RejectLoanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	actor, _ := middleware.GetCurrentUserFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.loanFlow.RejectLoan(h.createRequestContext(c, "/api/v1/loans/:uuid/reject"), loanUUID, &req, actor, metadata)
	if err != nil {
		if businessflow.IsLoanNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Loan not found", "LOAN_NOT_FOUND", nil)
		}
		if businessflow.IsLoanNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Loan is not pending approval", "LOAN_NOT_PENDING", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("Loan rejection failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Loan rejection failed", "REJECT_LOAN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"loan": result.Loan,
	})
}

// RecordPayment applies a repayment to a loan
func (h *LoanHandler) RecordPayment(c fiber.Ctx) error {
	loanUUID := c.Params("uuid")
	if loanUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Loan UUID is required", "INVALID_REQUEST", nil)
	}

	var req dto.RecordPaymentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	actor, _ := middleware.GetCurrentUserFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.loanFlow.RecordPayment(h.createRequestContext(c, "/api/v1/loans/:uuid/payments"), loanUUID, &req, actor, metadata)
	if err != nil {
		if businessflow.IsLoanNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Loan not found", "LOAN_NOT_FOUND", nil)
		}
		if businessflow.IsLoanNotOpen(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Loan is not open", "LOAN_NOT_OPEN", nil)
		}
		if businessflow.IsPaymentExceedsBalance(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Payment exceeds the outstanding balance", "PAYMENT_EXCEEDS_BALANCE", nil)
		}

		log.Println("Payment recording failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Payment recording failed", "RECORD_PAYMENT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, fiber.Map{
		"payment": result.Payment,
		"loan":    result.Loan,
	})
}

// GetLoan fetches a loan with its payment history
func (h *LoanHandler) GetLoan(c fiber.Ctx) error {
	loanUUID := c.Params("uuid")
	if loanUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Loan UUID is required", "INVALID_REQUEST", nil)
	}

	result, err := h.loanFlow.GetLoan(h.createRequestContext(c, "/api/v1/loans/:uuid"), loanUUID)
	if err != nil {
		if businessflow.IsLoanNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Loan not found", "LOAN_NOT_FOUND", nil)
		}

		log.Println("Get loan failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch loan", "GET_LOAN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"loan":     result.Loan,
		"payments": result.Payments,
	})
}

// ListLoans lists loans matching optional branch and status filters
func (h *LoanHandler) ListLoans(c fiber.Ctx) error {
	var req dto.ListLoansRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.loanFlow.ListLoans(h.createRequestContext(c, "/api/v1/loans"), &req)
	if err != nil {
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}

		log.Println("List loans failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list loans", "LIST_LOANS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"loans": result.Loans,
		"total": result.Total,
	})
}

func (h *LoanHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
