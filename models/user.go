// Package models contains domain entities and business models for the ERP backend
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	UniqueID string    `gorm:"size:20;not null;uniqueIndex:uk_users_unique_id" json:"unique_id"`

	BranchID uint   `gorm:"not null;index:idx_users_branch_id" json:"branch_id"`
	Branch   Branch `gorm:"foreignKey:BranchID;references:ID" json:"branch,omitempty"`

	Role      string `gorm:"size:20;not null;default:'officer';index:idx_users_role" json:"role"`
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`

	Mobile       string `gorm:"size:15;not null;uniqueIndex:uk_users_mobile" json:"mobile"`
	Email        string `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	IsActive *bool `gorm:"default:true;index:idx_users_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Sessions  []UserSession `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs []AuditLog    `gorm:"foreignKey:UserID" json:"-"`
	Loans     []Loan        `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Role constants
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleOfficer = "officer"
)

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	UniqueID      *string
	BranchID      *uint
	Role          *string
	Email         *string
	Mobile        *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

func (u *User) CanApproveLoans() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}
