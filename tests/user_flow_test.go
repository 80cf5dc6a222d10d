// Package tests contains integration tests for user administration
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

func newUserFlow(testDB *testingutil.TestDB) businessflow.UserFlow {
	return businessflow.NewUserFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewBranchRepository(testDB.DB),
		repository.NewBranchCounterRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func createUserRequest(branchCode, suffix, role string) *dto.CreateUserRequest {
	return &dto.CreateUserRequest{
		BranchCode: branchCode,
		FirstName:  "Fatema",
		LastName:   "Begum",
		Mobile:     "+88018" + suffix,
		Email:      "fatema." + suffix + "@example.com.bd",
		Password:   "SecurePass123",
		Role:       role,
	}
}

func TestUserFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		userFlow := newUserFlow(testDB)
		ctx := context.Background()

		dhaka, err := fixtures.CreateTestBranch("DH")
		require.NoError(t, err)
		bogura, err := fixtures.CreateTestBranch("BOG")
		require.NoError(t, err)

		manager, err := fixtures.CreateTestUser(dhaka, models.RoleManager)
		require.NoError(t, err)
		officer, err := fixtures.CreateTestUser(dhaka, models.RoleOfficer)
		require.NoError(t, err)

		t.Run("ManagerCreatesUserAcrossBranches", func(t *testing.T) {
			// Fixture users consumed DH-0001 and DH-0002
			created, err := userFlow.CreateUser(ctx, createUserRequest("DH", "22220001", ""), manager, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "DH-0003", created.User.UniqueID)
			assert.Equal(t, models.RoleOfficer, created.User.Role)

			// Bogura runs its own counter from one
			other, err := userFlow.CreateUser(ctx, createUserRequest("BOG", "22220002", models.RoleManager), manager, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "BOG-0001", other.User.UniqueID)
			assert.Equal(t, bogura.Code, other.User.BranchCode)
			assert.Equal(t, models.RoleManager, other.User.Role)
		})

		t.Run("OfficerCannotCreateUsers", func(t *testing.T) {
			_, err := userFlow.CreateUser(ctx, createUserRequest("DH", "22220003", ""), officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		t.Run("DuplicateMobileFails", func(t *testing.T) {
			req := createUserRequest("DH", "22220004", "")
			req.Mobile = manager.Mobile

			_, err := userFlow.CreateUser(ctx, req, manager, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsMobileAlreadyExists(err))
		})

		t.Run("GetUserByUniqueID", func(t *testing.T) {
			resp, err := userFlow.GetUser(ctx, manager.UniqueID)
			require.NoError(t, err)
			assert.Equal(t, manager.Email, resp.User.Email)
			assert.Equal(t, "DH", resp.User.BranchCode)
		})

		t.Run("GetUnknownUserFails", func(t *testing.T) {
			_, err := userFlow.GetUser(ctx, "DH-9999")
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("ListUsersByBranchAndRole", func(t *testing.T) {
			resp, err := userFlow.ListUsers(ctx, &dto.ListUsersRequest{
				BranchCode: "BOG",
			})
			require.NoError(t, err)
			require.Len(t, resp.Users, 1)
			assert.Equal(t, "BOG-0001", resp.Users[0].UniqueID)

			managers, err := userFlow.ListUsers(ctx, &dto.ListUsersRequest{
				BranchCode: "DH",
				Role:       models.RoleManager,
			})
			require.NoError(t, err)
			for _, u := range managers.Users {
				assert.Equal(t, models.RoleManager, u.Role)
			}
		})

		t.Run("UpdateOwnProfile", func(t *testing.T) {
			newFirst := "Rahima"
			updated, err := userFlow.UpdateUser(ctx, officer.UniqueID, &dto.UpdateUserRequest{
				FirstName: &newFirst,
			}, officer, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "Rahima", updated.User.FirstName)
			assert.Equal(t, officer.UniqueID, updated.User.UniqueID)
		})

		t.Run("OfficerCannotEditOthers", func(t *testing.T) {
			newFirst := "Karim"
			_, err := userFlow.UpdateUser(ctx, manager.UniqueID, &dto.UpdateUserRequest{
				FirstName: &newFirst,
			}, officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		t.Run("OfficerCannotChangeOwnRole", func(t *testing.T) {
			role := models.RoleManager
			_, err := userFlow.UpdateUser(ctx, officer.UniqueID, &dto.UpdateUserRequest{
				Role: &role,
			}, officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		t.Run("UpdateToTakenEmailFails", func(t *testing.T) {
			taken := manager.Email
			_, err := userFlow.UpdateUser(ctx, officer.UniqueID, &dto.UpdateUserRequest{
				Email: &taken,
			}, manager, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("DeactivateUser", func(t *testing.T) {
			target, err := fixtures.CreateTestUser(dhaka, models.RoleOfficer)
			require.NoError(t, err)

			_, err = userFlow.DeactivateUser(ctx, target.UniqueID, manager, testMetadata())
			require.NoError(t, err)

			refreshed, err := userFlow.GetUser(ctx, target.UniqueID)
			require.NoError(t, err)
			assert.False(t, utils.IsTrue(refreshed.User.IsActive))

			// Officers cannot deactivate accounts
			_, err = userFlow.DeactivateUser(ctx, manager.UniqueID, officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		return nil
	})
	require.NoError(t, err)
}
