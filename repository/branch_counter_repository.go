package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/utils"
	"gorm.io/gorm"
)

var (
	// ErrInvalidBranchCode is returned when the branch code is empty or blank
	ErrInvalidBranchCode = errors.New("branch code must not be empty")
	// ErrStorageUnavailable is returned when the counter store cannot be reached
	ErrStorageUnavailable = errors.New("counter storage unavailable")
)

// BranchCounterRepositoryImpl implements BranchCounterRepository on Postgres.
// Allocation is a single upsert statement so concurrent callers across any
// number of processes never observe the same sequence twice.
type BranchCounterRepositoryImpl struct {
	db *gorm.DB
}

// NewBranchCounterRepository creates a new branch counter repository
func NewBranchCounterRepository(db *gorm.DB) BranchCounterRepository {
	return &BranchCounterRepositoryImpl{db: db}
}

func (r *BranchCounterRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// Next atomically increments and returns the sequence for branchCode.
// The row is created lazily on first use, so the first allocation returns 1.
func (r *BranchCounterRepositoryImpl) Next(ctx context.Context, branchCode string) (int64, error) {
	code := utils.NormalizeBranchCode(branchCode)
	if code == "" {
		return 0, ErrInvalidBranchCode
	}

	db := r.getDB(ctx)

	var sequence int64
	err := db.WithContext(ctx).Raw(`
		INSERT INTO branch_counters (branch_code, sequence, created_at, updated_at)
		VALUES (?, 1, timezone('UTC', now()), timezone('UTC', now()))
		ON CONFLICT (branch_code)
		DO UPDATE SET sequence = branch_counters.sequence + 1,
		              updated_at = timezone('UTC', now())
		RETURNING sequence`, code).Scan(&sequence).Error
	if err != nil {
		return 0, fmt.Errorf("%w: failed to allocate sequence for branch %s: %v", ErrStorageUnavailable, code, err)
	}

	return sequence, nil
}

// Current returns the last allocated sequence for a branch without consuming
// a number. Branches that never allocated return 0.
func (r *BranchCounterRepositoryImpl) Current(ctx context.Context, branchCode string) (int64, error) {
	code := utils.NormalizeBranchCode(branchCode)
	if code == "" {
		return 0, ErrInvalidBranchCode
	}

	db := r.getDB(ctx)

	var counter models.BranchCounter
	err := db.WithContext(ctx).Where("branch_code = ?", code).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to read counter for branch %s: %v", ErrStorageUnavailable, code, err)
	}

	return counter.Sequence, nil
}
