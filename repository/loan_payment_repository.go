package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/openclerk/branch-erp/models"
	"gorm.io/gorm"
)

// LoanPaymentRepositoryImpl implements LoanPaymentRepository
type LoanPaymentRepositoryImpl struct {
	*BaseRepository[models.LoanPayment, models.LoanPaymentFilter]
}

// NewLoanPaymentRepository creates a new loan payment repository
func NewLoanPaymentRepository(db *gorm.DB) LoanPaymentRepository {
	return &LoanPaymentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LoanPayment, models.LoanPaymentFilter](db),
	}
}

// ByLoanID retrieves all payments for a loan, oldest first
func (r *LoanPaymentRepositoryImpl) ByLoanID(ctx context.Context, loanID uint) ([]*models.LoanPayment, error) {
	db := r.getDB(ctx)

	var payments []*models.LoanPayment
	err := db.Where("loan_id = ?", loanID).Order("paid_at ASC").Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find payments by loan ID: %w", err)
	}

	return payments, nil
}

// SumByLoanID returns the total amount paid against a loan
func (r *LoanPaymentRepositoryImpl) SumByLoanID(ctx context.Context, loanID uint) (int64, error) {
	db := r.getDB(ctx)

	var total int64
	err := db.Model(&models.LoanPayment{}).
		Where("loan_id = ?", loanID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments by loan ID: %w", err)
	}

	return total, nil
}

// SumByBranch returns total payments collected in a branch since the given time
func (r *LoanPaymentRepositoryImpl) SumByBranch(ctx context.Context, branchID uint, since time.Time) (int64, error) {
	db := r.getDB(ctx)

	var total int64
	err := db.Model(&models.LoanPayment{}).
		Joins("JOIN loans ON loans.id = loan_payments.loan_id").
		Where("loans.branch_id = ? AND loan_payments.paid_at >= ?", branchID, since).
		Select("COALESCE(SUM(loan_payments.amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments by branch: %w", err)
	}

	return total, nil
}

// ByFilter retrieves payments matching the filter criteria
func (r *LoanPaymentRepositoryImpl) ByFilter(ctx context.Context, filter models.LoanPaymentFilter, orderBy string, limit int) ([]*models.LoanPayment, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var payments []*models.LoanPayment
	err := query.Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find payments by filter: %w", err)
	}

	return payments, nil
}

// Update updates an existing payment
func (r *LoanPaymentRepositoryImpl) Update(ctx context.Context, payment *models.LoanPayment) error {
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

	err = db.Save(payment).Error
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	return nil
}

// Count returns the number of payments matching the filter
func (r *LoanPaymentRepositoryImpl) Count(ctx context.Context, filter models.LoanPaymentFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db, filter).Model(&models.LoanPayment{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}

	return count, nil
}

func (r *LoanPaymentRepositoryImpl) applyFilter(db *gorm.DB, filter models.LoanPaymentFilter) *gorm.DB {
	query := db

	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.LoanID != nil {
		query = query.Where("loan_id = ?", *filter.LoanID)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.PaidAfter != nil {
		query = query.Where("paid_at > ?", *filter.PaidAfter)
	}
	if filter.PaidBefore != nil {
		query = query.Where("paid_at < ?", *filter.PaidBefore)
	}

	return query
}
