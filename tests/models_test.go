// Package tests contains tests for domain model behavior
package tests

import (
	"testing"
	"time"

	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/utils"
	"github.com/stretchr/testify/assert"
)

func TestLoanTotalPayable(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		rate      float64
		term      int
		expected  int64
	}{
		{
			name:      "OneYearFlatRate",
			principal: 120000,
			rate:      12.0,
			term:      12,
			expected:  134400,
		},
		{
			name:      "TwoYearsDoublesInterest",
			principal: 120000,
			rate:      12.0,
			term:      24,
			expected:  148800,
		},
		{
			name:      "ZeroRate",
			principal: 500000,
			rate:      0,
			term:      12,
			expected:  500000,
		},
		{
			name:      "HalfYearHalvesInterest",
			principal: 100000,
			rate:      10.0,
			term:      6,
			expected:  105000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := models.Loan{
				Principal:    tt.principal,
				InterestRate: tt.rate,
				TermMonths:   tt.term,
			}
			assert.Equal(t, tt.expected, loan.TotalPayable())
		})
	}
}

func TestLoanIsOpen(t *testing.T) {
	tests := []struct {
		status string
		open   bool
	}{
		{models.LoanStatusApproved, true},
		{models.LoanStatusActive, true},
		{models.LoanStatusPending, false},
		{models.LoanStatusClosed, false},
		{models.LoanStatusRejected, false},
	}

	for _, tt := range tests {
		loan := models.Loan{Status: tt.status}
		assert.Equal(t, tt.open, loan.IsOpen(), "status %s", tt.status)
	}
}

func TestUserRoles(t *testing.T) {
	admin := models.User{Role: models.RoleAdmin}
	manager := models.User{Role: models.RoleManager}
	officer := models.User{Role: models.RoleOfficer}

	assert.True(t, admin.IsAdmin())
	assert.False(t, manager.IsAdmin())

	assert.True(t, admin.CanApproveLoans())
	assert.True(t, manager.CanApproveLoans())
	assert.False(t, officer.CanApproveLoans())
}

func TestSessionValidity(t *testing.T) {
	active := models.UserSession{
		IsActive:  utils.ToPtr(true),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	assert.False(t, active.IsExpired())
	assert.True(t, active.IsValid())

	expired := models.UserSession{
		IsActive:  utils.ToPtr(true),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}
	assert.True(t, expired.IsExpired())
	assert.False(t, expired.IsValid())

	revoked := models.UserSession{
		IsActive:  utils.ToPtr(false),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	assert.False(t, revoked.IsValid())
}
