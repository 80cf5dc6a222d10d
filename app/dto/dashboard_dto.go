package dto

// BranchDashboardResponse represents aggregate figures for a branch
type BranchDashboardResponse struct {
	Message   string          `json:"message"`
	Dashboard BranchDashboard `json:"dashboard"`
	FromCache bool            `json:"from_cache"`
}

// BranchDashboard holds the aggregated branch metrics
type BranchDashboard struct {
	BranchCode        string `json:"branch_code" example:"DH"`
	BranchName        string `json:"branch_name"`
	TotalUsers        int64  `json:"total_users"`
	ActiveUsers       int64  `json:"active_users"`
	LastSequence      int64  `json:"last_sequence"`
	PendingLoans      int64  `json:"pending_loans"`
	ActiveLoans       int64  `json:"active_loans"`
	ClosedLoans       int64  `json:"closed_loans"`
	OutstandingAmount int64  `json:"outstanding_amount"`
	CollectedToday    int64  `json:"collected_today"`
	Currency          string `json:"currency" example:"BDT"`
	GeneratedAt       string `json:"generated_at"`
}
