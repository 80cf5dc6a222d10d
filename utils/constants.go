package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Unique ID constants
const (
	// UniqueIDMinWidth is the minimum zero-padded width of the sequence part of a unique ID
	UniqueIDMinWidth = 4

	// UniqueIDSeparator joins the branch code and the sequence part
	UniqueIDSeparator = "-"
)

// Loan constants
const (
	// BDTCurrency is the currency code for amounts stored on loans and payments
	BDTCurrency = "BDT"

	// MinLoanPrincipal is the smallest principal a loan request may carry
	MinLoanPrincipal = 1000

	// MaxLoanTermMonths caps the repayment term of a single loan
	MaxLoanTermMonths = 120
)

// Cache key constants
const (
	// DashboardCachePrefix prefixes per-branch dashboard snapshots in Redis
	DashboardCachePrefix = "dashboard:"

	// DashboardCacheTTL is how long a branch dashboard snapshot stays cached
	DashboardCacheTTL = 2 * time.Minute
)
