// Package tests contains integration tests for branch management
package tests

import (
	"context"
	"testing"

	"github.com/openclerk/branch-erp/app/dto"
	businessflow "github.com/openclerk/branch-erp/business_flow"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	testingutil "github.com/openclerk/branch-erp/testing"
	"github.com/openclerk/branch-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBranchFlow(testDB *testingutil.TestDB) businessflow.BranchFlow {
	return businessflow.NewBranchFlow(
		repository.NewBranchRepository(testDB.DB),
		repository.NewBranchCounterRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func TestBranchFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		branchFlow := newBranchFlow(testDB)
		ctx := context.Background()

		seed, err := fixtures.CreateTestBranch("DH")
		require.NoError(t, err)
		admin, err := fixtures.CreateTestUser(seed, models.RoleAdmin)
		require.NoError(t, err)
		manager, err := fixtures.CreateTestUser(seed, models.RoleManager)
		require.NoError(t, err)

		t.Run("AdminCreatesBranch", func(t *testing.T) {
			resp, err := branchFlow.CreateBranch(ctx, &dto.CreateBranchRequest{
				Code:    "ctg",
				Name:    "Chattogram Branch",
				Address: utils.ToPtr("Agrabad C/A, Chattogram"),
			}, admin, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "CTG", resp.Branch.Code)
			assert.Equal(t, int64(0), resp.Branch.LastSequence)
		})

		t.Run("DuplicateCodeRejected", func(t *testing.T) {
			_, err := branchFlow.CreateBranch(ctx, &dto.CreateBranchRequest{
				Code: "CTG",
				Name: "Another Chattogram",
			}, admin, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsBranchCodeAlreadyExists(err))
		})

		t.Run("ManagerCannotCreateBranch", func(t *testing.T) {
			_, err := branchFlow.CreateBranch(ctx, &dto.CreateBranchRequest{
				Code: "SYL",
				Name: "Sylhet Branch",
			}, manager, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		t.Run("GetBranchReportsLastSequence", func(t *testing.T) {
			// Fixture users consumed DH-0001 and DH-0002
			resp, err := branchFlow.GetBranch(ctx, "DH")
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Branch.LastSequence)
		})

		t.Run("UpdateBranchTogglesActive", func(t *testing.T) {
			resp, err := branchFlow.UpdateBranch(ctx, "CTG", &dto.UpdateBranchRequest{
				IsActive: utils.ToPtr(false),
			}, admin, testMetadata())
			require.NoError(t, err)
			assert.False(t, utils.IsTrue(resp.Branch.IsActive))
		})

		t.Run("ListBranches", func(t *testing.T) {
			resp, err := branchFlow.ListBranches(ctx)
			require.NoError(t, err)
			assert.Len(t, resp.Branches, 2)
		})

		t.Run("DeactivateBranchKeepsCounter", func(t *testing.T) {
			_, err := branchFlow.CreateBranch(ctx, &dto.CreateBranchRequest{
				Code: "RAJ",
				Name: "Rajshahi Branch",
			}, admin, testMetadata())
			require.NoError(t, err)

			_, err = branchFlow.DeactivateBranch(ctx, "RAJ", admin, testMetadata())
			require.NoError(t, err)

			resp, err := branchFlow.GetBranch(ctx, "RAJ")
			require.NoError(t, err)
			assert.False(t, utils.IsTrue(resp.Branch.IsActive))

			// Managers cannot deactivate branches
			_, err = branchFlow.DeactivateBranch(ctx, "DH", manager, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		return nil
	})
	require.NoError(t, err)
}
