// Package models contains domain entities and business models for the ERP backend
package models

import (
	"time"

	"github.com/google/uuid"
)

type Loan struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_loans_uuid" json:"uuid"`

	UserID   uint   `gorm:"not null;index:idx_loans_user_id" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	BranchID uint   `gorm:"not null;index:idx_loans_branch_id" json:"branch_id"`
	Branch   Branch `gorm:"foreignKey:BranchID;references:ID" json:"branch,omitempty"`

	// Amounts are stored in the smallest currency unit (poisha) as integers
	// to keep balance arithmetic exact.
	Principal    int64   `gorm:"not null" json:"principal"`
	InterestRate float64 `gorm:"not null" json:"interest_rate"` // flat annual rate, percent
	TermMonths   int     `gorm:"not null" json:"term_months"`
	Currency     string  `gorm:"size:3;not null;default:'BDT'" json:"currency"`

	Status string `gorm:"size:20;not null;default:'pending';index:idx_loans_status" json:"status"`

	ApprovedByUserID *uint      `gorm:"index:idx_loans_approved_by" json:"approved_by_user_id,omitempty"`
	DisbursedAt      *time.Time `json:"disbursed_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_loans_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Payments []LoanPayment `gorm:"foreignKey:LoanID" json:"payments,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusPending  = "pending"
	LoanStatusApproved = "approved"
	LoanStatusActive   = "active"
	LoanStatusClosed   = "closed"
	LoanStatusRejected = "rejected"
)

// LoanFilter represents filter criteria for loan queries
type LoanFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	UserID        *uint
	BranchID      *uint
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// TotalPayable returns principal plus flat interest over the full term.
func (l *Loan) TotalPayable() int64 {
	interest := float64(l.Principal) * l.InterestRate / 100 * float64(l.TermMonths) / 12
	return l.Principal + int64(interest)
}

func (l *Loan) IsOpen() bool {
	return l.Status == LoanStatusApproved || l.Status == LoanStatusActive
}
