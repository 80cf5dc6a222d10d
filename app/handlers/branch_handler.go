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

// BranchHandlerInterface defines the contract for branch management handlers
type BranchHandlerInterface interface {
	CreateBranch(c fiber.Ctx) error
	UpdateBranch(c fiber.Ctx) error
	DeactivateBranch(c fiber.Ctx) error
	GetBranch(c fiber.Ctx) error
	ListBranches(c fiber.Ctx) error
}

// BranchHandler handles branch management HTTP requests
type BranchHandler struct {
	branchFlow businessflow.BranchFlow
	validator  *validator.Validate
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branchFlow businessflow.BranchFlow) *BranchHandler {
	handler := &BranchHandler{
		branchFlow: branchFlow,
		validator:  validator.New(),
	}

	registerCustomValidations(handler.validator)

	return handler
}

func (h *BranchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *BranchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateBranch registers a new branch
func (h *BranchHandler) CreateBranch(c fiber.Ctx) error {
	var req dto.CreateBranchRequest
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

	result, err := h.branchFlow.CreateBranch(h.createRequestContext(c, "/api/v1/branches"), &req, actor, metadata)
	if err != nil {
		if businessflow.IsBranchCodeAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Branch code already exists", "BRANCH_CODE_EXISTS", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("Branch creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Branch creation failed", "CREATE_BRANCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, fiber.Map{
		"branch": result.Branch,
	})
}

// UpdateBranch changes branch details
func (h *BranchHandler) UpdateBranch(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Branch code is required", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateBranchRequest
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

	result, err := h.branchFlow.UpdateBranch(h.createRequestContext(c, "/api/v1/branches/:code"), code, &req, actor, metadata)
	if err != nil {
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("Branch update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Branch update failed", "UPDATE_BRANCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"branch": result.Branch,
	})
}

// DeactivateBranch marks a branch inactive
func (h *BranchHandler) DeactivateBranch(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Branch code is required", "INVALID_REQUEST", nil)
	}

	actor, _ := middleware.GetCurrentUserFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.branchFlow.DeactivateBranch(h.createRequestContext(c, "/api/v1/branches/:code"), code, actor, metadata)
	if err != nil {
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("Branch deactivation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Branch deactivation failed", "DEACTIVATE_BRANCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

// GetBranch fetches a branch by code
func (h *BranchHandler) GetBranch(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Branch code is required", "INVALID_REQUEST", nil)
	}

	result, err := h.branchFlow.GetBranch(h.createRequestContext(c, "/api/v1/branches/:code"), code)
	if err != nil {
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}

		log.Println("Get branch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch branch", "GET_BRANCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"branch": result.Branch,
	})
}

// ListBranches lists all branches
func (h *BranchHandler) ListBranches(c fiber.Ctx) error {
	result, err := h.branchFlow.ListBranches(h.createRequestContext(c, "/api/v1/branches"))
	if err != nil {
		log.Println("List branches failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list branches", "LIST_BRANCHES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"branches": result.Branches,
		"total":    result.Total,
	})
}

func (h *BranchHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
