package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/openclerk/branch-erp/app/dto"
	businessflow "github.com/openclerk/branch-erp/business_flow"
)

// DashboardHandlerInterface defines the contract for dashboard handlers
type DashboardHandlerInterface interface {
	GetBranchDashboard(c fiber.Ctx) error
}

// DashboardHandler serves branch dashboard aggregates
type DashboardHandler struct {
	dashboardFlow businessflow.DashboardFlow
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardFlow businessflow.DashboardFlow) *DashboardHandler {
	return &DashboardHandler{
		dashboardFlow: dashboardFlow,
	}
}

func (h *DashboardHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DashboardHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetBranchDashboard returns aggregate figures for a branch
func (h *DashboardHandler) GetBranchDashboard(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Branch code is required", "INVALID_REQUEST", nil)
	}

	result, err := h.dashboardFlow.GetBranchDashboard(h.createRequestContext(c, "/api/v1/dashboard/:code"), code)
	if err != nil {
		if businessflow.IsBranchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Branch not found", "BRANCH_NOT_FOUND", nil)
		}

		log.Println("Dashboard failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build dashboard", "DASHBOARD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"dashboard":  result.Dashboard,
		"from_cache": result.FromCache,
	})
}

func (h *DashboardHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 15*time.Second)
}
