package models

import "time"

// BranchCounter stores the last sequence value issued for a branch code.
// Rows are created lazily on first allocation and never deleted; the
// sequence column is only ever touched by the atomic increment in the
// counter repository, so it stays dense and duplicate-free across
// concurrent callers and server processes.
type BranchCounter struct {
	BranchCode string    `gorm:"primaryKey;size:5" json:"branch_code"`
	Sequence   int64     `gorm:"not null;default:0" json:"sequence"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (BranchCounter) TableName() string { return "branch_counters" }
