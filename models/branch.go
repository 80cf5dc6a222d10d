// Package models contains domain entities and business models for the ERP backend
package models

import (
	"time"

	"github.com/google/uuid"
)

type Branch struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_branches_uuid" json:"uuid"`
	Code    string    `gorm:"size:5;not null;uniqueIndex:uk_branches_code" json:"code"`
	Name    string    `gorm:"size:100;not null" json:"name"`
	Address *string   `gorm:"size:255" json:"address,omitempty"`
	Phone   *string   `gorm:"size:20" json:"phone,omitempty"`

	IsActive *bool `gorm:"default:true;index:idx_branches_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Users []User `gorm:"foreignKey:BranchID" json:"-"`
	Loans []Loan `gorm:"foreignKey:BranchID" json:"-"`
}

func (Branch) TableName() string {
	return "branches"
}

// BranchFilter represents filter criteria for branch queries
type BranchFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Code          *string
	Name          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
