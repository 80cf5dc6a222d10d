// Package tests contains integration tests for the repository layer
package tests

import (
	"context"
	"testing"

	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	testingutil "github.com/openclerk/branch-erp/testing"
	"github.com/openclerk/branch-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositories(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		branchRepo := repository.NewBranchRepository(testDB.DB)
		userRepo := repository.NewUserRepository(testDB.DB)
		sessionRepo := repository.NewUserSessionRepository(testDB.DB)
		loanRepo := repository.NewLoanRepository(testDB.DB)
		paymentRepo := repository.NewLoanPaymentRepository(testDB.DB)

		branch, err := fixtures.CreateTestBranch("DH")
		require.NoError(t, err)

		t.Run("BranchLookups", func(t *testing.T) {
			found, err := branchRepo.ByCode(ctx, "DH")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, branch.ID, found.ID)

			// Lookup normalizes the code
			found, err = branchRepo.ByCode(ctx, " dh ")
			require.NoError(t, err)
			require.NotNil(t, found)

			missing, err := branchRepo.ByCode(ctx, "XX")
			require.NoError(t, err)
			assert.Nil(t, missing)

			exists, err := branchRepo.ExistsByCode(ctx, "DH")
			require.NoError(t, err)
			assert.True(t, exists)
		})

		t.Run("UserLookups", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			byUniqueID, err := userRepo.ByUniqueID(ctx, user.UniqueID)
			require.NoError(t, err)
			require.NotNil(t, byUniqueID)
			assert.Equal(t, "DH", byUniqueID.Branch.Code)

			byEmail, err := userRepo.ByEmail(ctx, user.Email)
			require.NoError(t, err)
			require.NotNil(t, byEmail)
			assert.Equal(t, user.ID, byEmail.ID)

			byMobile, err := userRepo.ByMobile(ctx, user.Mobile)
			require.NoError(t, err)
			require.NotNil(t, byMobile)

			exists, err := userRepo.ExistsByMobile(ctx, user.Mobile)
			require.NoError(t, err)
			assert.True(t, exists)

			now := utils.UTCNow()
			require.NoError(t, userRepo.UpdateLastLogin(ctx, user.ID, now))
			refreshed, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, refreshed.LastLoginAt)
		})

		t.Run("SessionRevocation", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			first, err := fixtures.CreateTestSession(user.ID)
			require.NoError(t, err)
			second, err := fixtures.CreateTestSession(user.ID)
			require.NoError(t, err)

			active, err := sessionRepo.ActiveSessionsByUserID(ctx, user.ID)
			require.NoError(t, err)
			assert.Len(t, active, 2)

			require.NoError(t, sessionRepo.RevokeSession(ctx, first.ID))
			active, err = sessionRepo.ActiveSessionsByUserID(ctx, user.ID)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, second.ID, active[0].ID)

			require.NoError(t, sessionRepo.RevokeAllUserSessions(ctx, user.ID))
			active, err = sessionRepo.ActiveSessionsByUserID(ctx, user.ID)
			require.NoError(t, err)
			assert.Empty(t, active)
		})

		t.Run("LoanAggregates", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			active, err := fixtures.CreateTestLoan(user, models.LoanStatusActive, 200000)
			require.NoError(t, err)
			_, err = fixtures.CreateTestLoan(user, models.LoanStatusPending, 300000)
			require.NoError(t, err)

			open, err := loanRepo.OpenLoansByUserID(ctx, user.ID)
			require.NoError(t, err)
			require.Len(t, open, 1)
			assert.Equal(t, active.ID, open[0].ID)

			pendingCount, err := loanRepo.CountByBranchAndStatus(ctx, branch.ID, models.LoanStatusPending)
			require.NoError(t, err)
			assert.Equal(t, int64(1), pendingCount)

			outstanding, err := loanRepo.SumPrincipalByBranch(ctx, branch.ID, []string{models.LoanStatusApproved, models.LoanStatusActive})
			require.NoError(t, err)
			assert.Equal(t, int64(200000), outstanding)

			_, err = fixtures.CreateTestPayment(active, user.ID, 50000)
			require.NoError(t, err)
			_, err = fixtures.CreateTestPayment(active, user.ID, 25000)
			require.NoError(t, err)

			paid, err := paymentRepo.SumByLoanID(ctx, active.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(75000), paid)

			since := utils.UTCNow().Add(-1 * utils.SessionTimeout)
			collected, err := paymentRepo.SumByBranch(ctx, branch.ID, since)
			require.NoError(t, err)
			assert.Equal(t, int64(75000), collected)
		})

		return nil
	})
	require.NoError(t, err)
}
