// Package models contains domain entities and business models for the ERP backend
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/openclerk/branch-erp/utils"
)

type UserSession struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CorrelationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_sessions_correlation_id" json:"correlation_id"` // Groups related session records
	UserID        uint            `gorm:"not null;index:idx_sessions_user_id" json:"user_id"`
	User          User            `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	SessionToken  string          `gorm:"size:512;not null;uniqueIndex:uk_sessions_session_token" json:"-"` // Never serialize token
	RefreshToken  *string         `gorm:"size:512;uniqueIndex:uk_sessions_refresh_token" json:"-"`          // Never serialize refresh token
	DeviceInfo    json.RawMessage `gorm:"type:jsonb" json:"device_info,omitempty"`
	IPAddress     *string         `gorm:"type:inet;index:idx_sessions_ip_address" json:"ip_address,omitempty"`
	UserAgent     *string         `gorm:"type:text" json:"user_agent,omitempty"`
	IsActive      *bool           `gorm:"default:true;index:idx_sessions_is_active" json:"is_active"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt     time.Time       `gorm:"not null;index:idx_sessions_expires_at" json:"expires_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// UserSessionFilter represents filter criteria for session queries
type UserSessionFilter struct {
	ID            *uint
	CorrelationID *uuid.UUID
	UserID        *uint
	IsActive      *bool
	IPAddress     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
	IsExpired     *bool // Helper to filter expired sessions
}

func (s *UserSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *UserSession) IsValid() bool {
	return utils.IsTrue(s.IsActive) && !s.IsExpired()
}
