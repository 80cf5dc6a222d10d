// Package businessflow contains the core business logic and use cases for branch operations
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/app/services"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthFlow handles user authentication and session management
type AuthFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Register(ctx context.Context, request *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	RefreshToken(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error)
	Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.UserSessionRepository
	branchRepo   repository.BranchRepository
	counterRepo  repository.BranchCounterRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewAuthFlow creates a new authentication flow instance
func NewAuthFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	branchRepo repository.BranchRepository,
	counterRepo repository.BranchCounterRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		branchRepo:   branchRepo,
		counterRepo:  counterRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Login authenticates a user with email/mobile and password
func (af *AuthFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if err := af.validateLoginRequest(request); err != nil {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", err)
	}

	var user *models.User

	resp, err := af.WithLoginTransaction(ctx, func(ctx context.Context) (*dto.LoginResponse, error) {
		var err error
		user, err = af.FindUserByIdentifier(ctx, request.Identifier)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		if !utils.IsTrue(user.IsActive) {
			return nil, ErrAccountInactive
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		branch, err := af.branchRepo.ByID(ctx, user.BranchID)
		if err != nil {
			return nil, err
		}
		if branch == nil {
			return nil, ErrBranchNotFound
		}
		user.Branch = *branch

		session, err := af.CreateSession(ctx, user.ID, metadata)
		if err != nil {
			return nil, err
		}

		if err := af.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
			return nil, err
		}

		return &dto.LoginResponse{
			Message: "Login successful",
			User:    ToAuthUserDTO(*user),
			Session: ToSessionDTO(*session),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = af.LogAuthAttempt(ctx, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("User logged in successfully: %s", resp.User.UniqueID)
	_ = af.LogAuthAttempt(ctx, user, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return resp, nil
}

// Register creates a new user account in a branch and mints its unique ID.
// The counter increment and the user insert commit or roll back together,
// so a failed registration never consumes a sequence number.
func (af *AuthFlowImpl) Register(ctx context.Context, request *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	if err := af.validateRegisterRequest(ctx, request); err != nil {
		return nil, NewBusinessError("REGISTER_VALIDATION_FAILED", "Registration validation failed", err)
	}

	var user *models.User

	resp, err := af.WithRegisterTransaction(ctx, func(ctx context.Context) (*dto.RegisterResponse, error) {
		branch, err := af.branchRepo.ByCode(ctx, request.BranchCode)
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

		sequence, err := af.counterRepo.Next(ctx, branch.Code)
		if err != nil {
			return nil, err
		}

		// Self-registration never grants elevated roles.
		user = &models.User{
			UUID:         uuid.New(),
			UniqueID:     utils.FormatUniqueID(branch.Code, sequence),
			BranchID:     branch.ID,
			Branch:       *branch,
			Role:         models.RoleOfficer,
			FirstName:    request.FirstName,
			LastName:     request.LastName,
			Mobile:       request.Mobile,
			Email:        request.Email,
			PasswordHash: string(hashedPassword),
			IsActive:     utils.ToPtr(true),
		}

		if err := af.userRepo.Save(ctx, user); err != nil {
			return nil, err
		}

		session, err := af.CreateSession(ctx, user.ID, metadata)
		if err != nil {
			return nil, err
		}

		return &dto.RegisterResponse{
			Message: "Registration successful",
			User:    ToAuthUserDTO(*user),
			Session: ToSessionDTO(*session),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = af.LogAuthAttempt(ctx, nil, models.AuditActionRegisterFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("REGISTER_FAILED", "Registration failed", err)
	}

	msg := fmt.Sprintf("User registered successfully: %s", resp.User.UniqueID)
	_ = af.LogAuthAttempt(ctx, user, models.AuditActionRegisterCompleted, msg, true, nil, metadata)

	return resp, nil
}

// RefreshToken rotates the session tokens using a valid refresh token
func (af *AuthFlowImpl) RefreshToken(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error) {
	resp, err := af.WithRefreshTransaction(ctx, func(ctx context.Context) (*dto.RefreshTokenResponse, error) {
		session, err := af.sessionRepo.ByRefreshToken(ctx, request.RefreshToken)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		if !session.IsValid() {
			return nil, ErrSessionExpired
		}

		accessToken, refreshToken, err := af.tokenService.RefreshToken(request.RefreshToken)
		if err != nil {
			return nil, err
		}

		// Revoke the old session and record a fresh one under the same correlation ID
		if err := af.sessionRepo.RevokeSession(ctx, session.ID); err != nil {
			return nil, err
		}

		newSession := &models.UserSession{
			CorrelationID: session.CorrelationID,
			UserID:        session.UserID,
			SessionToken:  accessToken,
			RefreshToken:  &refreshToken,
			IPAddress:     session.IPAddress,
			UserAgent:     session.UserAgent,
			IsActive:      utils.ToPtr(true),
			ExpiresAt:     utils.UTCNowAdd(utils.SessionTimeout),
		}

		if err := af.sessionRepo.Save(ctx, newSession); err != nil {
			return nil, err
		}

		return &dto.RefreshTokenResponse{
			Message: "Token refreshed",
			Session: ToSessionDTO(*newSession),
		}, nil
	})

	if err != nil {
		return nil, NewBusinessError("REFRESH_TOKEN_FAILED", "Token refresh failed", err)
	}

	return resp, nil
}

// Logout revokes the session behind the presented access token
func (af *AuthFlowImpl) Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	var user *models.User

	resp, err := af.WithLogoutTransaction(ctx, func(ctx context.Context) (*dto.LogoutResponse, error) {
		session, err := af.sessionRepo.BySessionToken(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		if session == nil || !utils.IsTrue(session.IsActive) {
			return nil, ErrSessionNotFound
		}
		user = &session.User

		if err := af.sessionRepo.RevokeSession(ctx, session.ID); err != nil {
			return nil, err
		}

		_ = af.tokenService.RevokeToken(accessToken)

		return &dto.LogoutResponse{Message: "Logout successful"}, nil
	})

	if err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	msg := "User logged out"
	_ = af.LogAuthAttempt(ctx, user, models.AuditActionLogout, msg, true, nil, metadata)

	return resp, nil
}

func (af *AuthFlowImpl) FindUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)

	if strings.Contains(identifier, "@") {
		return af.userRepo.ByEmail(ctx, identifier)
	}
	return af.userRepo.ByMobile(ctx, identifier)
}

func (af *AuthFlowImpl) CreateSession(ctx context.Context, userID uint, metadata *ClientMetadata) (*models.UserSession, error) {
	accessToken, refreshToken, err := af.tokenService.GenerateTokens(userID)
	if err != nil {
		return nil, err
	}

	expiresAt := utils.UTCNowAdd(utils.SessionTimeout)

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.UserSession{
		UserID:        userID,
		CorrelationID: uuid.New(),
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     expiresAt,
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	err = af.sessionRepo.Save(ctx, session)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (af *AuthFlowImpl) LogAuthAttempt(ctx context.Context, user *models.User, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil {
		userID = &user.ID
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

	return af.auditRepo.Save(ctx, audit)
}

func (af *AuthFlowImpl) WithLoginTransaction(ctx context.Context, fn func(context.Context) (*dto.LoginResponse, error)) (*dto.LoginResponse, error) {
	var result *dto.LoginResponse
	var fnErr error

	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (af *AuthFlowImpl) WithRegisterTransaction(ctx context.Context, fn func(context.Context) (*dto.RegisterResponse, error)) (*dto.RegisterResponse, error) {
	var result *dto.RegisterResponse
	var fnErr error

	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (af *AuthFlowImpl) WithRefreshTransaction(ctx context.Context, fn func(context.Context) (*dto.RefreshTokenResponse, error)) (*dto.RefreshTokenResponse, error) {
	var result *dto.RefreshTokenResponse
	var fnErr error

	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (af *AuthFlowImpl) WithLogoutTransaction(ctx context.Context, fn func(context.Context) (*dto.LogoutResponse, error)) (*dto.LogoutResponse, error) {
	var result *dto.LogoutResponse
	var fnErr error

	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (af *AuthFlowImpl) validateLoginRequest(request *dto.LoginRequest) error {
	if request.Identifier == "" {
		return ErrUserNotFound
	}

	if request.Password == "" {
		return ErrIncorrectPassword
	}

	return nil
}

func (af *AuthFlowImpl) validateRegisterRequest(ctx context.Context, request *dto.RegisterRequest) error {
	if utils.NormalizeBranchCode(request.BranchCode) == "" {
		return ErrBranchCodeRequired
	}

	exists, err := af.userRepo.ExistsByEmail(ctx, request.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}

	exists, err = af.userRepo.ExistsByMobile(ctx, request.Mobile)
	if err != nil {
		return err
	}
	if exists {
		return ErrMobileAlreadyExists
	}

	return nil
}
