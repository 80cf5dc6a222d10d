// Package tests contains integration tests for the authentication flow
package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/app/services"
	businessflow "github.com/openclerk/branch-erp/business_flow"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	testingutil "github.com/openclerk/branch-erp/testing"
	"github.com/openclerk/branch-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-that-is-long-enough-for-hs256"

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()
	tokenService, err := services.NewTokenService(1*time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", testJWTSecret)
	require.NoError(t, err)
	return tokenService
}

func newAuthFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.AuthFlow {
	t.Helper()
	return businessflow.NewAuthFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewUserSessionRepository(testDB.DB),
		repository.NewBranchRepository(testDB.DB),
		repository.NewBranchCounterRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		newTestTokenService(t),
		testDB.DB,
	)
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
}

func registerRequest(branchCode, suffix string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		BranchCode: branchCode,
		FirstName:  "Karim",
		LastName:   "Hossain",
		Mobile:     fmt.Sprintf("+88017%s", suffix),
		Email:      fmt.Sprintf("karim.%s@example.com.bd", suffix),
		Password:   "SecurePass123",
	}
}

func TestAuthFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		authFlow := newAuthFlow(t, testDB)
		ctx := context.Background()

		branch, err := fixtures.CreateTestBranch("DH")
		require.NoError(t, err)

		t.Run("RegisterMintsSequentialUniqueIDs", func(t *testing.T) {
			first, err := authFlow.Register(ctx, registerRequest("DH", "11110001"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "DH-0001", first.User.UniqueID)
			assert.Equal(t, models.RoleOfficer, first.User.Role)
			assert.NotEmpty(t, first.Session.AccessToken)
			assert.NotNil(t, first.Session.RefreshToken)

			second, err := authFlow.Register(ctx, registerRequest("DH", "11110002"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "DH-0002", second.User.UniqueID)
			// Self-registration can never yield an elevated role
			assert.Equal(t, models.RoleOfficer, second.User.Role)
		})

		t.Run("DuplicateEmailDoesNotConsumeSequence", func(t *testing.T) {
			dup := registerRequest("DH", "11110003")
			dup.Email = "karim.11110001@example.com.bd"

			_, err := authFlow.Register(ctx, dup, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))

			// The next successful registration continues where the last one left off
			next, err := authFlow.Register(ctx, registerRequest("DH", "11110004"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "DH-0003", next.User.UniqueID)
		})

		t.Run("RegisterUnknownBranchFails", func(t *testing.T) {
			_, err := authFlow.Register(ctx, registerRequest("XX", "11110005"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsBranchNotFound(err))
		})

		t.Run("RegisterInactiveBranchFails", func(t *testing.T) {
			inactive, err := fixtures.CreateTestBranch("CTG")
			require.NoError(t, err)
			inactive.IsActive = utils.ToPtr(false)
			require.NoError(t, testDB.DB.Save(inactive).Error)

			_, err = authFlow.Register(ctx, registerRequest("CTG", "11110006"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsBranchInactive(err))
		})

		t.Run("LoginWithEmailAndMobile", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			byEmail, err := authFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   testingutil.TestPassword,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, user.UniqueID, byEmail.User.UniqueID)
			assert.Equal(t, "DH", byEmail.User.BranchCode)
			assert.NotEmpty(t, byEmail.Session.AccessToken)

			byMobile, err := authFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Mobile,
				Password:   testingutil.TestPassword,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, user.UniqueID, byMobile.User.UniqueID)
		})

		t.Run("LoginWrongPasswordFails", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			_, err = authFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   "WrongPass123",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("LoginInactiveAccountFails", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)
			user.IsActive = utils.ToPtr(false)
			require.NoError(t, testDB.DB.Save(user).Error)

			_, err = authFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   testingutil.TestPassword,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		t.Run("RefreshTokenRotatesSession", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			login, err := authFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   testingutil.TestPassword,
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, login.Session.RefreshToken)

			refreshed, err := authFlow.RefreshToken(ctx, &dto.RefreshTokenRequest{
				RefreshToken: *login.Session.RefreshToken,
			}, testMetadata())
			require.NoError(t, err)
			assert.NotEmpty(t, refreshed.Session.AccessToken)
			assert.NotEqual(t, login.Session.AccessToken, refreshed.Session.AccessToken)

			// The old refresh token is revoked with its session
			_, err = authFlow.RefreshToken(ctx, &dto.RefreshTokenRequest{
				RefreshToken: *login.Session.RefreshToken,
			}, testMetadata())
			require.Error(t, err)
		})

		t.Run("LogoutRevokesSession", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
			require.NoError(t, err)

			login, err := authFlow.Login(ctx, &dto.LoginRequest{
				Identifier: user.Email,
				Password:   testingutil.TestPassword,
			}, testMetadata())
			require.NoError(t, err)

			_, err = authFlow.Logout(ctx, login.Session.AccessToken, testMetadata())
			require.NoError(t, err)

			// A second logout finds no active session
			_, err = authFlow.Logout(ctx, login.Session.AccessToken, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsSessionNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
