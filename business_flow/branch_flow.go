package businessflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
	"gorm.io/gorm"
)

// BranchFlow handles branch registration and management
type BranchFlow interface {
	CreateBranch(ctx context.Context, request *dto.CreateBranchRequest, actor *models.User, metadata *ClientMetadata) (*dto.CreateBranchResponse, error)
	UpdateBranch(ctx context.Context, code string, request *dto.UpdateBranchRequest, actor *models.User, metadata *ClientMetadata) (*dto.UpdateBranchResponse, error)
	DeactivateBranch(ctx context.Context, code string, actor *models.User, metadata *ClientMetadata) (*dto.DeactivateBranchResponse, error)
	GetBranch(ctx context.Context, code string) (*dto.GetBranchResponse, error)
	ListBranches(ctx context.Context) (*dto.ListBranchesResponse, error)
}

// BranchFlowImpl implements the branch management flow
type BranchFlowImpl struct {
	branchRepo  repository.BranchRepository
	counterRepo repository.BranchCounterRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewBranchFlow creates a new branch flow instance
func NewBranchFlow(
	branchRepo repository.BranchRepository,
	counterRepo repository.BranchCounterRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) BranchFlow {
	return &BranchFlowImpl{
		branchRepo:  branchRepo,
		counterRepo: counterRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// CreateBranch registers a new branch with a unique code
func (bf *BranchFlowImpl) CreateBranch(ctx context.Context, request *dto.CreateBranchRequest, actor *models.User, metadata *ClientMetadata) (*dto.CreateBranchResponse, error) {
	code := utils.NormalizeBranchCode(request.Code)
	if code == "" {
		return nil, NewBusinessError("CREATE_BRANCH_VALIDATION_FAILED", "Branch validation failed", ErrBranchCodeRequired)
	}

	if actor != nil && !actor.IsAdmin() {
		return nil, NewBusinessError("CREATE_BRANCH_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}

	resp, err := bf.WithCreateBranchTransaction(ctx, func(ctx context.Context) (*dto.CreateBranchResponse, error) {
		exists, err := bf.branchRepo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrBranchCodeAlreadyExists
		}

		branch := &models.Branch{
			UUID:     uuid.New(),
			Code:     code,
			Name:     request.Name,
			Address:  request.Address,
			Phone:    request.Phone,
			IsActive: utils.ToPtr(true),
		}

		if err := bf.branchRepo.Save(ctx, branch); err != nil {
			return nil, err
		}

		return &dto.CreateBranchResponse{
			Message: "Branch created",
			Branch:  ToBranchDTO(*branch, 0),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Branch creation failed: %s", err.Error())
		_ = bf.LogBranchAction(ctx, actor, models.AuditActionBranchCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CREATE_BRANCH_FAILED", "Branch creation failed", err)
	}

	msg := fmt.Sprintf("Branch created: %s", code)
	_ = bf.LogBranchAction(ctx, actor, models.AuditActionBranchCreated, msg, true, nil, metadata)

	return resp, nil
}

// UpdateBranch changes branch details. The code itself is immutable since
// minted unique IDs embed it.
func (bf *BranchFlowImpl) UpdateBranch(ctx context.Context, code string, request *dto.UpdateBranchRequest, actor *models.User, metadata *ClientMetadata) (*dto.UpdateBranchResponse, error) {
	if actor != nil && !actor.IsAdmin() {
		return nil, NewBusinessError("UPDATE_BRANCH_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}

	resp, err := bf.WithUpdateBranchTransaction(ctx, func(ctx context.Context) (*dto.UpdateBranchResponse, error) {
		branch, err := bf.branchRepo.ByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if branch == nil {
			return nil, ErrBranchNotFound
		}

		if request.Name != nil {
			branch.Name = *request.Name
		}
		if request.Address != nil {
			branch.Address = request.Address
		}
		if request.Phone != nil {
			branch.Phone = request.Phone
		}
		if request.IsActive != nil {
			branch.IsActive = request.IsActive
		}

		if err := bf.branchRepo.Update(ctx, branch); err != nil {
			return nil, err
		}

		sequence, err := bf.counterRepo.Current(ctx, branch.Code)
		if err != nil {
			return nil, err
		}

		return &dto.UpdateBranchResponse{
			Message: "Branch updated",
			Branch:  ToBranchDTO(*branch, sequence),
		}, nil
	})

	if err != nil {
		return nil, NewBusinessError("UPDATE_BRANCH_FAILED", "Branch update failed", err)
	}

	action := models.AuditActionBranchUpdated
	if request.IsActive != nil && !*request.IsActive {
		action = models.AuditActionBranchDeactivated
	}
	msg := fmt.Sprintf("Branch updated: %s", resp.Branch.Code)
	_ = bf.LogBranchAction(ctx, actor, action, msg, true, nil, metadata)

	return resp, nil
}

// DeactivateBranch marks a branch inactive. The branch and its counter are
// kept, so minted unique IDs stay resolvable and the sequence never resets.
func (bf *BranchFlowImpl) DeactivateBranch(ctx context.Context, code string, actor *models.User, metadata *ClientMetadata) (*dto.DeactivateBranchResponse, error) {
	update := &dto.UpdateBranchRequest{IsActive: utils.ToPtr(false)}
	if _, err := bf.UpdateBranch(ctx, code, update, actor, metadata); err != nil {
		return nil, err
	}

	return &dto.DeactivateBranchResponse{Message: "Branch deactivated"}, nil
}

// GetBranch retrieves a branch by code with its last allocated sequence
func (bf *BranchFlowImpl) GetBranch(ctx context.Context, code string) (*dto.GetBranchResponse, error) {
	branch, err := bf.branchRepo.ByCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("GET_BRANCH_FAILED", "Failed to fetch branch", err)
	}
	if branch == nil {
		return nil, NewBusinessError("BRANCH_NOT_FOUND", "Branch not found", ErrBranchNotFound)
	}

	sequence, err := bf.counterRepo.Current(ctx, branch.Code)
	if err != nil {
		return nil, NewBusinessError("GET_BRANCH_FAILED", "Failed to fetch branch counter", err)
	}

	return &dto.GetBranchResponse{
		Message: "Branch retrieved",
		Branch:  ToBranchDTO(*branch, sequence),
	}, nil
}

// ListBranches retrieves all branches with their counters
func (bf *BranchFlowImpl) ListBranches(ctx context.Context) (*dto.ListBranchesResponse, error) {
	branches, err := bf.branchRepo.ByFilter(ctx, models.BranchFilter{}, "code ASC", 0)
	if err != nil {
		return nil, NewBusinessError("LIST_BRANCHES_FAILED", "Failed to list branches", err)
	}

	dtos := make([]dto.BranchDTO, 0, len(branches))
	for _, branch := range branches {
		sequence, err := bf.counterRepo.Current(ctx, branch.Code)
		if err != nil {
			return nil, NewBusinessError("LIST_BRANCHES_FAILED", "Failed to fetch branch counter", err)
		}
		dtos = append(dtos, ToBranchDTO(*branch, sequence))
	}

	return &dto.ListBranchesResponse{
		Message:  "Branches retrieved",
		Branches: dtos,
		Total:    int64(len(dtos)),
	}, nil
}

func (bf *BranchFlowImpl) LogBranchAction(ctx context.Context, actor *models.User, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if actor != nil {
		userID = &actor.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return bf.auditRepo.Save(ctx, audit)
}

func (bf *BranchFlowImpl) WithCreateBranchTransaction(ctx context.Context, fn func(context.Context) (*dto.CreateBranchResponse, error)) (*dto.CreateBranchResponse, error) {
	var result *dto.CreateBranchResponse
	var fnErr error

	err := repository.WithTransaction(ctx, bf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (bf *BranchFlowImpl) WithUpdateBranchTransaction(ctx context.Context, fn func(context.Context) (*dto.UpdateBranchResponse, error)) (*dto.UpdateBranchResponse, error) {
	var result *dto.UpdateBranchResponse
	var fnErr error

	err := repository.WithTransaction(ctx, bf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}
