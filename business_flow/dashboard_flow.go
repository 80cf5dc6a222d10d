package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
	"github.com/redis/go-redis/v9"
)

// DashboardFlow serves aggregate branch figures, cached in Redis
type DashboardFlow interface {
	GetBranchDashboard(ctx context.Context, branchCode string) (*dto.BranchDashboardResponse, error)
	InvalidateBranchDashboard(ctx context.Context, branchCode string) error
}

// DashboardFlowImpl implements the dashboard flow
type DashboardFlowImpl struct {
	branchRepo  repository.BranchRepository
	counterRepo repository.BranchCounterRepository
	userRepo    repository.UserRepository
	loanRepo    repository.LoanRepository
	paymentRepo repository.LoanPaymentRepository
	rc          *redis.Client
	cachePrefix string
	cacheTTL    time.Duration
}

// NewDashboardFlow creates a new dashboard flow instance
func NewDashboardFlow(
	branchRepo repository.BranchRepository,
	counterRepo repository.BranchCounterRepository,
	userRepo repository.UserRepository,
	loanRepo repository.LoanRepository,
	paymentRepo repository.LoanPaymentRepository,
	rc *redis.Client,
	cachePrefix string,
) DashboardFlow {
	return &DashboardFlowImpl{
		branchRepo:  branchRepo,
		counterRepo: counterRepo,
		userRepo:    userRepo,
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		rc:          rc,
		cachePrefix: cachePrefix,
		cacheTTL:    utils.DashboardCacheTTL,
	}
}

// GetBranchDashboard returns aggregate figures for a branch. The computed
// snapshot is cached so repeated polls do not hammer the database.
func (df *DashboardFlowImpl) GetBranchDashboard(ctx context.Context, branchCode string) (*dto.BranchDashboardResponse, error) {
	code := utils.NormalizeBranchCode(branchCode)
	if code == "" {
		return nil, NewBusinessError("DASHBOARD_VALIDATION_FAILED", "Branch code is required", ErrBranchCodeRequired)
	}

	cacheKey := df.cacheKey(code)

	// Try cache first
	if df.rc != nil {
		if bs, err := df.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.BranchDashboard
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &dto.BranchDashboardResponse{
					Message:   "Dashboard retrieved from cache",
					Dashboard: cached,
					FromCache: true,
				}, nil
			}
		}
	}

	branch, err := df.branchRepo.ByCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to fetch branch", err)
	}
	if branch == nil {
		return nil, NewBusinessError("BRANCH_NOT_FOUND", "Branch not found", ErrBranchNotFound)
	}

	dashboard, err := df.buildDashboard(ctx, branch)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to build dashboard", err)
	}

	// Cache the snapshot, best effort
	if df.rc != nil {
		if bs, err := json.Marshal(dashboard); err == nil {
			_ = df.rc.Set(ctx, cacheKey, bs, df.cacheTTL).Err()
		}
	}

	return &dto.BranchDashboardResponse{
		Message:   "Dashboard retrieved",
		Dashboard: *dashboard,
		FromCache: false,
	}, nil
}

// InvalidateBranchDashboard drops the cached snapshot for a branch
func (df *DashboardFlowImpl) InvalidateBranchDashboard(ctx context.Context, branchCode string) error {
	if df.rc == nil {
		return ErrCacheNotAvailable
	}

	code := utils.NormalizeBranchCode(branchCode)
	if code == "" {
		return ErrBranchCodeRequired
	}

	return df.rc.Del(ctx, df.cacheKey(code)).Err()
}

func (df *DashboardFlowImpl) buildDashboard(ctx context.Context, branch *models.Branch) (*dto.BranchDashboard, error) {
	totalUsers, err := df.userRepo.Count(ctx, models.UserFilter{BranchID: &branch.ID})
	if err != nil {
		return nil, err
	}

	activeUsers, err := df.userRepo.Count(ctx, models.UserFilter{
		BranchID: &branch.ID,
		IsActive: utils.ToPtr(true),
	})
	if err != nil {
		return nil, err
	}

	lastSequence, err := df.counterRepo.Current(ctx, branch.Code)
	if err != nil {
		return nil, err
	}

	pendingLoans, err := df.loanRepo.CountByBranchAndStatus(ctx, branch.ID, models.LoanStatusPending)
	if err != nil {
		return nil, err
	}

	activeLoans, err := df.loanRepo.CountByBranchAndStatus(ctx, branch.ID, models.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	closedLoans, err := df.loanRepo.CountByBranchAndStatus(ctx, branch.ID, models.LoanStatusClosed)
	if err != nil {
		return nil, err
	}

	outstanding, err := df.loanRepo.SumPrincipalByBranch(ctx, branch.ID, []string{models.LoanStatusApproved, models.LoanStatusActive})
	if err != nil {
		return nil, err
	}

	startOfDay := utils.UTCNow().Truncate(24 * time.Hour)
	collectedToday, err := df.paymentRepo.SumByBranch(ctx, branch.ID, startOfDay)
	if err != nil {
		return nil, err
	}

	return &dto.BranchDashboard{
		BranchCode:        branch.Code,
		BranchName:        branch.Name,
		TotalUsers:        totalUsers,
		ActiveUsers:       activeUsers,
		LastSequence:      lastSequence,
		PendingLoans:      pendingLoans,
		ActiveLoans:       activeLoans,
		ClosedLoans:       closedLoans,
		OutstandingAmount: outstanding,
		CollectedToday:    collectedToday,
		Currency:          utils.BDTCurrency,
		GeneratedAt:       utils.UTCNow().Format(time.RFC3339),
	}, nil
}

func (df *DashboardFlowImpl) cacheKey(branchCode string) string {
	return df.cachePrefix + utils.DashboardCachePrefix + branchCode
}
