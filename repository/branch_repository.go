package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/utils"
	"gorm.io/gorm"
)

// BranchRepositoryImpl implements BranchRepository
type BranchRepositoryImpl struct {
	*BaseRepository[models.Branch, models.BranchFilter]
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &BranchRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Branch, models.BranchFilter](db),
	}
}

// ByCode retrieves a branch by its code
func (r *BranchRepositoryImpl) ByCode(ctx context.Context, code string) (*models.Branch, error) {
	db := r.getDB(ctx)

	var branch models.Branch
	err := db.Where("code = ?", utils.NormalizeBranchCode(code)).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find branch by code: %w", err)
	}

	return &branch, nil
}

// ExistsByCode checks whether a branch with the given code exists
func (r *BranchRepositoryImpl) ExistsByCode(ctx context.Context, code string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Branch{}).Where("code = ?", utils.NormalizeBranchCode(code)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check branch existence by code: %w", err)
	}

	return count > 0, nil
}

// ByFilter retrieves branches matching the filter criteria
func (r *BranchRepositoryImpl) ByFilter(ctx context.Context, filter models.BranchFilter, orderBy string, limit int) ([]*models.Branch, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var branches []*models.Branch
	err := query.Find(&branches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find branches by filter: %w", err)
	}

	return branches, nil
}

// Update updates an existing branch
func (r *BranchRepositoryImpl) Update(ctx context.Context, branch *models.Branch) error {
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

	err = db.Save(branch).Error
	if err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}

	return nil
}

// Count returns the number of branches matching the filter
func (r *BranchRepositoryImpl) Count(ctx context.Context, filter models.BranchFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db, filter).Model(&models.Branch{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count branches: %w", err)
	}

	return count, nil
}

func (r *BranchRepositoryImpl) applyFilter(db *gorm.DB, filter models.BranchFilter) *gorm.DB {
	query := db

	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Code != nil {
		query = query.Where("code = ?", *filter.Code)
	}
	if filter.Name != nil {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	return query
}
