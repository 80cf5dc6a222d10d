package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/openclerk/branch-erp/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanRepositoryImpl implements LoanRepository
type LoanRepositoryImpl struct {
	*BaseRepository[models.Loan, models.LoanFilter]
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &LoanRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Loan, models.LoanFilter](db),
	}
}

// ByUUID retrieves a loan by UUID with its payments preloaded
func (r *LoanRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Loan, error) {
	db := r.getDB(ctx)

	var loan models.Loan
	err := db.Preload("Payments").Where("uuid = ?", uuid).First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find loan by UUID: %w", err)
	}

	return &loan, nil
}

// ByUUIDForUpdate retrieves a loan by UUID holding a row lock until the
// enclosing transaction ends. Callers that read payment sums before writing
// must use this so concurrent payments serialize on the loan row.
func (r *LoanRepositoryImpl) ByUUIDForUpdate(ctx context.Context, uuid string) (*models.Loan, error) {
	db := r.getDB(ctx)

	var loan models.Loan
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("uuid = ?", uuid).First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock loan by UUID: %w", err)
	}

	return &loan, nil
}

// OpenLoansByUserID retrieves a user's approved and active loans
func (r *LoanRepositoryImpl) OpenLoansByUserID(ctx context.Context, userID uint) ([]*models.Loan, error) {
	db := r.getDB(ctx)

	var loans []*models.Loan
	err := db.Where("user_id = ? AND status IN ?", userID, []string{models.LoanStatusApproved, models.LoanStatusActive}).
		Order("created_at DESC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find open loans: %w", err)
	}

	return loans, nil
}

// SumPrincipalByBranch returns the total principal for a branch across the given statuses
func (r *LoanRepositoryImpl) SumPrincipalByBranch(ctx context.Context, branchID uint, statuses []string) (int64, error) {
	db := r.getDB(ctx)

	var total int64
	query := db.Model(&models.Loan{}).Where("branch_id = ?", branchID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	err := query.Select("COALESCE(SUM(principal), 0)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum loan principal: %w", err)
	}

	return total, nil
}

// CountByBranchAndStatus counts loans in a branch with the given status
func (r *LoanRepositoryImpl) CountByBranchAndStatus(ctx context.Context, branchID uint, status string) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Loan{}).
		Where("branch_id = ? AND status = ?", branchID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}

	return count, nil
}

// ByFilter retrieves loans matching the filter criteria
func (r *LoanRepositoryImpl) ByFilter(ctx context.Context, filter models.LoanFilter, orderBy string, limit int) ([]*models.Loan, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var loans []*models.Loan
	err := query.Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find loans by filter: %w", err)
	}

	return loans, nil
}

// Update updates an existing loan
func (r *LoanRepositoryImpl) Update(ctx context.Context, loan *models.Loan) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(loan).Error
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}

	return nil
}

// Count returns the number of loans matching the filter
func (r *LoanRepositoryImpl) Count(ctx context.Context, filter models.LoanFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db, filter).Model(&models.Loan{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}

	return count, nil
}

func (r *LoanRepositoryImpl) applyFilter(db *gorm.DB, filter models.LoanFilter) *gorm.DB {
	query := db

	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	return query
}
