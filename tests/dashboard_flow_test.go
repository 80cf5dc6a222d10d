// Package tests contains integration tests for the branch dashboard
package tests

import (
	"context"
	"testing"

	businessflow "github.com/openclerk/branch-erp/business_flow"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	testingutil "github.com/openclerk/branch-erp/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The dashboard flow degrades to direct reads when no Redis client is
// configured, which is how these tests exercise it.
func newDashboardFlow(testDB *testingutil.TestDB) businessflow.DashboardFlow {
	return businessflow.NewDashboardFlow(
		repository.NewBranchRepository(testDB.DB),
		repository.NewBranchCounterRepository(testDB.DB),
		repository.NewUserRepository(testDB.DB),
		repository.NewLoanRepository(testDB.DB),
		repository.NewLoanPaymentRepository(testDB.DB),
		nil,
		"test:",
	)
}

func TestDashboardFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		dashboardFlow := newDashboardFlow(testDB)
		ctx := context.Background()

		branch, err := fixtures.CreateTestBranch("DH")
		require.NoError(t, err)
		officer, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
		require.NoError(t, err)
		borrower, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
		require.NoError(t, err)

		active, err := fixtures.CreateTestLoan(borrower, models.LoanStatusActive, 500000)
		require.NoError(t, err)
		_, err = fixtures.CreateTestLoan(borrower, models.LoanStatusPending, 300000)
		require.NoError(t, err)
		_, err = fixtures.CreateTestPayment(active, officer.ID, 100000)
		require.NoError(t, err)

		t.Run("AggregatesBranchFigures", func(t *testing.T) {
			resp, err := dashboardFlow.GetBranchDashboard(ctx, "dh")
			require.NoError(t, err)
			assert.False(t, resp.FromCache)

			dashboard := resp.Dashboard
			assert.Equal(t, "DH", dashboard.BranchCode)
			assert.Equal(t, int64(2), dashboard.TotalUsers)
			assert.Equal(t, int64(2), dashboard.ActiveUsers)
			assert.Equal(t, int64(2), dashboard.LastSequence)
			assert.Equal(t, int64(1), dashboard.PendingLoans)
			assert.Equal(t, int64(1), dashboard.ActiveLoans)
			assert.Equal(t, int64(0), dashboard.ClosedLoans)
			assert.Equal(t, int64(500000), dashboard.OutstandingAmount)
			assert.Equal(t, int64(100000), dashboard.CollectedToday)
			assert.Equal(t, "BDT", dashboard.Currency)
		})

		t.Run("UnknownBranchFails", func(t *testing.T) {
			_, err := dashboardFlow.GetBranchDashboard(ctx, "XX")
			require.Error(t, err)
			assert.True(t, businessflow.IsBranchNotFound(err))
		})

		t.Run("InvalidateWithoutCacheFails", func(t *testing.T) {
			err := dashboardFlow.InvalidateBranchDashboard(ctx, "DH")
			assert.ErrorIs(t, err, businessflow.ErrCacheNotAvailable)
		})

		return nil
	})
	require.NoError(t, err)
}
