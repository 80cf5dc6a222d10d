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

// UserHandlerInterface defines the contract for user administration handlers
type UserHandlerInterface interface {
	CreateUser(c fiber.Ctx) error
	GetUser(c fiber.Ctx) error
	ListUsers(c fiber.Ctx) error
	UpdateUser(c fiber.Ctx) error
	DeactivateUser(c fiber.Ctx) error
}

// UserHandler handles user administration HTTP requests
type UserHandler struct {
	userFlow  businessflow.UserFlow
	validator *validator.Validate
}

// NewUserHandler creates a new user handler
func NewUserHandler(userFlow businessflow.UserFlow) *UserHandler {
	handler := &UserHandler{
		userFlow:  userFlow,
		validator: validator.New(),
	}

	registerCustomValidations(handler.validator)

	return handler
}

func (h *UserHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *UserHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateUser registers a user in a branch and mints its unique ID
func (h *UserHandler) CreateUser(c fiber.Ctx) error {
	var req dto.CreateUserRequest
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

	result, err := h.userFlow.CreateUser(h.createRequestContext(c, "/api/v1/users"), &req, actor, metadata)
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsMobileAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Mobile number already exists", "MOBILE_EXISTS", nil)
		}
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}
		if businessflow.IsBranchInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Branch is inactive", "BRANCH_INACTIVE", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("User creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User creation failed", "CREATE_USER_FAILED", nil)
	}

	middleware.RecordSequenceAllocation(req.BranchCode)

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, fiber.Map{
		"user": result.User,
	})
}

// GetUser fetches a single user by its minted unique ID
func (h *UserHandler) GetUser(c fiber.Ctx) error {
	uniqueID := c.Params("unique_id")
	if uniqueID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unique ID is required", "INVALID_REQUEST", nil)
	}

	result, err := h.userFlow.GetUser(h.createRequestContext(c, "/api/v1/users/:unique_id"), uniqueID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("Get user failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", "GET_USER_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"user": result.User,
	})
}

// ListUsers lists users matching optional branch and role filters
func (h *UserHandler) ListUsers(c fiber.Ctx) error {
	var req dto.ListUsersRequest
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

	result, err := h.userFlow.ListUsers(h.createRequestContext(c, "/api/v1/users"), &req)
	if err != nil {
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}

		log.Println("List users failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list users", "LIST_USERS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"users": result.Users,
		"total": result.Total,
	})
}

// UpdateUser changes user details identified by unique ID
func (h *UserHandler) UpdateUser(c fiber.Ctx) error {
	uniqueID := c.Params("unique_id")
	if uniqueID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unique ID is required", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateUserRequest
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

	result, err := h.userFlow.UpdateUser(h.createRequestContext(c, "/api/v1/users/:unique_id"), uniqueID, &req, actor, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsMobileAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Mobile number already exists", "MOBILE_EXISTS", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("User update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User update failed", "UPDATE_USER_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"user": result.User,
	})
}

// DeactivateUser marks a user inactive
func (h *UserHandler) DeactivateUser(c fiber.Ctx) error {
	uniqueID := c.Params("unique_id")
	if uniqueID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unique ID is required", "INVALID_REQUEST", nil)
	}

	actor, _ := middleware.GetCurrentUserFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.userFlow.DeactivateUser(h.createRequestContext(c, "/api/v1/users/:unique_id"), uniqueID, actor, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsRoleNotPermitted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", "ROLE_NOT_PERMITTED", nil)
		}

		log.Println("User deactivation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User deactivation failed", "DEACTIVATE_USER_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

func (h *UserHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
