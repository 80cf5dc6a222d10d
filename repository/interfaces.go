package repository

import (
	"context"
	"time"

	"github.com/openclerk/branch-erp/models"
)

// ContextKey is a typed key for context values
type ContextKey string

// TxContextKey is the context key under which an active transaction is stored
const TxContextKey ContextKey = "db_transaction"

// Repository defines generic CRUD operations shared by all repositories
type Repository[T any, F any] interface {
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit int) ([]*T, error)
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// BranchCounterRepository allocates branch-scoped unique sequence numbers
type BranchCounterRepository interface {
	// Next atomically increments and returns the counter for the given branch code.
	// The first call for a branch returns 1.
	Next(ctx context.Context, branchCode string) (int64, error)
	// Current returns the last allocated sequence for a branch, 0 when none exists.
	Current(ctx context.Context, branchCode string) (int64, error)
}

// BranchRepository manages branch records
type BranchRepository interface {
	Repository[models.Branch, models.BranchFilter]
	ByCode(ctx context.Context, code string) (*models.Branch, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// UserRepository manages user records
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByMobile(ctx context.Context, mobile string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUniqueID(ctx context.Context, uniqueID string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ExistsByMobile(ctx context.Context, mobile string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID uint, loginTime time.Time) error
}

// UserSessionRepository manages authentication sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	ActiveSessionsByUserID(ctx context.Context, userID uint) ([]*models.UserSession, error)
	RevokeSession(ctx context.Context, sessionID uint) error
	RevokeAllUserSessions(ctx context.Context, userID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// AuditLogRepository records audit trail entries
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ByUserID(ctx context.Context, userID uint, limit int) ([]*models.AuditLog, error)
	ByAction(ctx context.Context, action string, limit int) ([]*models.AuditLog, error)
}

// LoanRepository manages loan records
type LoanRepository interface {
	Repository[models.Loan, models.LoanFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Loan, error)
	ByUUIDForUpdate(ctx context.Context, uuid string) (*models.Loan, error)
	OpenLoansByUserID(ctx context.Context, userID uint) ([]*models.Loan, error)
	SumPrincipalByBranch(ctx context.Context, branchID uint, statuses []string) (int64, error)
	CountByBranchAndStatus(ctx context.Context, branchID uint, status string) (int64, error)
}

// LoanPaymentRepository manages loan payment records
type LoanPaymentRepository interface {
	Repository[models.LoanPayment, models.LoanPaymentFilter]
	ByLoanID(ctx context.Context, loanID uint) ([]*models.LoanPayment, error)
	SumByLoanID(ctx context.Context, loanID uint) (int64, error)
	SumByBranch(ctx context.Context, branchID uint, since time.Time) (int64, error)
}
