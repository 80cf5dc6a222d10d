package businessflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserFlow handles user administration within branches
type UserFlow interface {
	CreateUser(ctx context.Context, request *dto.CreateUserRequest, actor *models.User, metadata *ClientMetadata) (*dto.CreateUserResponse, error)
	GetUser(ctx context.Context, uniqueID string) (*dto.GetUserResponse, error)
	ListUsers(ctx context.Context, request *dto.ListUsersRequest) (*dto.ListUsersResponse, error)
	UpdateUser(ctx context.Context, uniqueID string, request *dto.UpdateUserRequest, actor *models.User, metadata *ClientMetadata) (*dto.UpdateUserResponse, error)
	DeactivateUser(ctx context.Context, uniqueID string, actor *models.User, metadata *ClientMetadata) (*dto.DeactivateUserResponse, error)
}

// UserFlowImpl implements the user administration flow
type UserFlowImpl struct {
	userRepo    repository.UserRepository
	branchRepo  repository.BranchRepository
	counterRepo repository.BranchCounterRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewUserFlow creates a new user flow instance
func NewUserFlow(
	userRepo repository.UserRepository,
	branchRepo repository.BranchRepository,
	counterRepo repository.BranchCounterRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) UserFlow {
	return &UserFlowImpl{
		userRepo:    userRepo,
		branchRepo:  branchRepo,
		counterRepo: counterRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// CreateUser registers a user in a branch and mints its unique ID. The
// allocation and the insert share one transaction, so a duplicate email or
// mobile rolls the counter back and no sequence number is consumed.
func (uf *UserFlowImpl) CreateUser(ctx context.Context, request *dto.CreateUserRequest, actor *models.User, metadata *ClientMetadata) (*dto.CreateUserResponse, error) {
	if err := uf.validateCreateUserRequest(ctx, request, actor); err != nil {
		return nil, NewBusinessError("CREATE_USER_VALIDATION_FAILED", "User validation failed", err)
	}

	var user *models.User

	resp, err := uf.WithCreateUserTransaction(ctx, func(ctx context.Context) (*dto.CreateUserResponse, error) {
		branch, err := uf.branchRepo.ByCode(ctx, request.BranchCode)
		if err != nil {
			return nil, err
		}
		if branch == nil {
			return nil, ErrBranchNotFound
		}
		if !utils.IsTrue(branch.IsActive) {
			return nil, ErrBranchInactive
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		sequence, err := uf.counterRepo.Next(ctx, branch.Code)
		if err != nil {
			return nil, err
		}

		role := request.Role
		if role == "" {
			role = models.RoleOfficer
		}

		user = &models.User{
			UUID:         uuid.New(),
			UniqueID:     utils.FormatUniqueID(branch.Code, sequence),
			BranchID:     branch.ID,
			Branch:       *branch,
			Role:         role,
			FirstName:    request.FirstName,
			LastName:     request.LastName,
			Mobile:       request.Mobile,
			Email:        request.Email,
			PasswordHash: string(hashedPassword),
			IsActive:     utils.ToPtr(true),
		}

		if err := uf.userRepo.Save(ctx, user); err != nil {
			return nil, err
		}

		return &dto.CreateUserResponse{
			Message: "User created",
			User:    ToUserDTO(*user),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("User creation failed: %s", err.Error())
		_ = uf.LogUserAction(ctx, actor, models.AuditActionUserCreateFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CREATE_USER_FAILED", "User creation failed", err)
	}

	msg := fmt.Sprintf("User created: %s", resp.User.UniqueID)
	_ = uf.LogUserAction(ctx, actor, models.AuditActionUserCreated, msg, true, nil, metadata)

	return resp, nil
}

// GetUser retrieves a user by its minted unique ID
func (uf *UserFlowImpl) GetUser(ctx context.Context, uniqueID string) (*dto.GetUserResponse, error) {
	user, err := uf.userRepo.ByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, NewBusinessError("GET_USER_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	return &dto.GetUserResponse{
		Message: "User retrieved",
		User:    ToUserDTO(*user),
	}, nil
}

// ListUsers retrieves users matching the request filters
func (uf *UserFlowImpl) ListUsers(ctx context.Context, request *dto.ListUsersRequest) (*dto.ListUsersResponse, error) {
	filter := models.UserFilter{}

	if request.BranchCode != "" {
		branch, err := uf.branchRepo.ByCode(ctx, request.BranchCode)
		if err != nil {
			return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to list users", err)
		}
		if branch == nil {
			return nil, NewBusinessError("BRANCH_NOT_FOUND", "Branch not found", ErrBranchNotFound)
		}
		filter.BranchID = &branch.ID
	}
	if request.Role != "" {
		filter.Role = &request.Role
	}

	limit := request.Limit
	if limit <= 0 {
		limit = 50
	}

	users, err := uf.userRepo.ByFilter(ctx, filter, "created_at DESC", limit)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to list users", err)
	}

	total, err := uf.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to count users", err)
	}

	dtos := make([]dto.UserDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, ToUserDTO(*user))
	}

	return &dto.ListUsersResponse{
		Message: "Users retrieved",
		Users:   dtos,
		Total:   total,
	}, nil
}

// UpdateUser changes user details. Users may edit their own profile and
// password; role changes and edits to other users need a manager or admin.
// The unique ID and branch are immutable, they are baked into minted IDs.
func (uf *UserFlowImpl) UpdateUser(ctx context.Context, uniqueID string, request *dto.UpdateUserRequest, actor *models.User, metadata *ClientMetadata) (*dto.UpdateUserResponse, error) {
	isSelf := actor != nil && actor.UniqueID == uniqueID
	if actor != nil && !isSelf && !actor.CanApproveLoans() {
		return nil, NewBusinessError("UPDATE_USER_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}
	if request.Role != nil && (actor == nil || !actor.CanApproveLoans()) {
		return nil, NewBusinessError("UPDATE_USER_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}

	passwordChanged := false

	resp, err := uf.WithUpdateUserTransaction(ctx, func(ctx context.Context) (*dto.UpdateUserResponse, error) {
		user, err := uf.userRepo.ByUniqueID(ctx, uniqueID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		if request.Email != nil && *request.Email != user.Email {
			exists, err := uf.userRepo.ExistsByEmail(ctx, *request.Email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrEmailAlreadyExists
			}
			user.Email = *request.Email
		}
		if request.Mobile != nil && *request.Mobile != user.Mobile {
			exists, err := uf.userRepo.ExistsByMobile(ctx, *request.Mobile)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrMobileAlreadyExists
			}
			user.Mobile = *request.Mobile
		}
		if request.FirstName != nil {
			user.FirstName = *request.FirstName
		}
		if request.LastName != nil {
			user.LastName = *request.LastName
		}
		if request.Role != nil {
			user.Role = *request.Role
		}
		if request.Password != nil {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*request.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = string(hashedPassword)
			passwordChanged = true
		}

		if err := uf.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}

		return &dto.UpdateUserResponse{
			Message: "User updated",
			User:    ToUserDTO(*user),
		}, nil
	})

	if err != nil {
		return nil, NewBusinessError("UPDATE_USER_FAILED", "User update failed", err)
	}

	action := models.AuditActionUserUpdated
	if passwordChanged {
		action = models.AuditActionPasswordChanged
	}
	msg := fmt.Sprintf("User updated: %s", uniqueID)
	_ = uf.LogUserAction(ctx, actor, action, msg, true, nil, metadata)

	return resp, nil
}

// DeactivateUser marks a user inactive. Admins and managers only.
func (uf *UserFlowImpl) DeactivateUser(ctx context.Context, uniqueID string, actor *models.User, metadata *ClientMetadata) (*dto.DeactivateUserResponse, error) {
	if actor != nil && !actor.CanApproveLoans() {
		return nil, NewBusinessError("DEACTIVATE_USER_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}

	resp, err := uf.WithDeactivateTransaction(ctx, func(ctx context.Context) (*dto.DeactivateUserResponse, error) {
		user, err := uf.userRepo.ByUniqueID(ctx, uniqueID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		user.IsActive = utils.ToPtr(false)
		if err := uf.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}

		return &dto.DeactivateUserResponse{Message: "User deactivated"}, nil
	})

	if err != nil {
		return nil, NewBusinessError("DEACTIVATE_USER_FAILED", "User deactivation failed", err)
	}

	msg := fmt.Sprintf("User deactivated: %s", uniqueID)
	_ = uf.LogUserAction(ctx, actor, models.AuditActionUserDeactivated, msg, true, nil, metadata)

	return resp, nil
}

func (uf *UserFlowImpl) LogUserAction(ctx context.Context, actor *models.User, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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

	return uf.auditRepo.Save(ctx, audit)
}

func (uf *UserFlowImpl) WithCreateUserTransaction(ctx context.Context, fn func(context.Context) (*dto.CreateUserResponse, error)) (*dto.CreateUserResponse, error) {
	var result *dto.CreateUserResponse
	var fnErr error

	err := repository.WithTransaction(ctx, uf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (uf *UserFlowImpl) WithUpdateUserTransaction(ctx context.Context, fn func(context.Context) (*dto.UpdateUserResponse, error)) (*dto.UpdateUserResponse, error) {
	var result *dto.UpdateUserResponse
	var fnErr error

	err := repository.WithTransaction(ctx, uf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (uf *UserFlowImpl) WithDeactivateTransaction(ctx context.Context, fn func(context.Context) (*dto.DeactivateUserResponse, error)) (*dto.DeactivateUserResponse, error) {
	var result *dto.DeactivateUserResponse
	var fnErr error

	err := repository.WithTransaction(ctx, uf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (uf *UserFlowImpl) validateCreateUserRequest(ctx context.Context, request *dto.CreateUserRequest, actor *models.User) error {
	if utils.NormalizeBranchCode(request.BranchCode) == "" {
		return ErrBranchCodeRequired
	}

	if actor != nil && !actor.CanApproveLoans() {
		return ErrRoleNotPermitted
	}

	exists, err := uf.userRepo.ExistsByEmail(ctx, request.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}

	exists, err = uf.userRepo.ExistsByMobile(ctx, request.Mobile)
	if err != nil {
		return err
	}
	if exists {
		return ErrMobileAlreadyExists
	}

	return nil
}
