// Package models contains domain entities and business models for the ERP backend
package models

import (
	"time"

	"github.com/google/uuid"
)

type LoanPayment struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_loan_payments_uuid" json:"uuid"`

	LoanID uint `gorm:"not null;index:idx_loan_payments_loan_id" json:"loan_id"`
	Loan   Loan `gorm:"foreignKey:LoanID;references:ID" json:"-"`

	Amount   int64   `gorm:"not null" json:"amount"`
	Currency string  `gorm:"size:3;not null;default:'BDT'" json:"currency"`
	Method   string  `gorm:"size:20;not null;default:'cash'" json:"method"`
	Note     *string `gorm:"type:text" json:"note,omitempty"`

	ReceivedByUserID uint `gorm:"not null;index:idx_loan_payments_received_by" json:"received_by_user_id"`

	PaidAt    time.Time `gorm:"not null;index:idx_loan_payments_paid_at" json:"paid_at"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (LoanPayment) TableName() string {
	return "loan_payments"
}

// Payment method constants
const (
	PaymentMethodCash   = "cash"
	PaymentMethodBank   = "bank"
	PaymentMethodMobile = "mobile" // bKash/Nagad style wallets
)

// LoanPaymentFilter represents filter criteria for payment queries
type LoanPaymentFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	LoanID     *uint
	Method     *string
	PaidAfter  *time.Time
	PaidBefore *time.Time
}
