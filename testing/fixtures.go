// Package testing provides test utilities and database setup for testing the ERP backend
package testing

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password used for all fixture accounts
const TestPassword = "TestPass123"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestBranch creates a branch with the given code
func (tf *TestFixtures) CreateTestBranch(code string) (*models.Branch, error) {
	code = utils.NormalizeBranchCode(code)

	branch := &models.Branch{
		UUID:     uuid.New(),
		Code:     code,
		Name:     fmt.Sprintf("%s Test Branch", code),
		Address:  utils.ToPtr("House 12, Road 5, Dhanmondi, Dhaka"),
		Phone:    utils.ToPtr("+88029611234"),
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(branch).Error; err != nil {
		return nil, fmt.Errorf("failed to create test branch: %w", err)
	}

	return branch, nil
}

// CreateTestUser creates a user in the given branch with a freshly
// allocated unique ID and the given role
func (tf *TestFixtures) CreateTestUser(branch *models.Branch, role string) (*models.User, error) {
	counterRepo := repository.NewBranchCounterRepository(tf.DB.DB)
	sequence, err := counterRepo.Next(context.Background(), branch.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Random 8-digit suffix keeps mobile and email unique across fixtures
	randomDigits := fmt.Sprintf("%08d", mrand.Intn(90000000)+10000000)

	user := &models.User{
		UUID:         uuid.New(),
		UniqueID:     utils.FormatUniqueID(branch.Code, sequence),
		BranchID:     branch.ID,
		Role:         role,
		FirstName:    "Rahim",
		LastName:     "Uddin",
		Mobile:       fmt.Sprintf("+88017%s", randomDigits),
		Email:        fmt.Sprintf("rahim.%s@example.com.bd", randomDigits),
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestLoan creates a loan for the given user with the given status
func (tf *TestFixtures) CreateTestLoan(user *models.User, status string, principal int64) (*models.Loan, error) {
	loan := &models.Loan{
		UUID:         uuid.New(),
		UserID:       user.ID,
		BranchID:     user.BranchID,
		Principal:    principal,
		InterestRate: 12.0,
		TermMonths:   12,
		Currency:     utils.BDTCurrency,
		Status:       status,
	}

	if status == models.LoanStatusActive || status == models.LoanStatusApproved {
		loan.DisbursedAt = utils.ToPtr(utils.UTCNow())
	}

	if err := tf.DB.DB.Create(loan).Error; err != nil {
		return nil, fmt.Errorf("failed to create test loan: %w", err)
	}

	return loan, nil
}

// CreateTestPayment records a payment against the given loan
func (tf *TestFixtures) CreateTestPayment(loan *models.Loan, receivedBy uint, amount int64) (*models.LoanPayment, error) {
	payment := &models.LoanPayment{
		UUID:             uuid.New(),
		LoanID:           loan.ID,
		Amount:           amount,
		Currency:         utils.BDTCurrency,
		Method:           models.PaymentMethodCash,
		ReceivedByUserID: receivedBy,
		PaidAt:           utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create test payment: %w", err)
	}

	return payment, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates an active session for the given user
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	session := &models.UserSession{
		CorrelationID: uuid.New(),
		UserID:        userID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     utils.ToPtr("127.0.0.1"),
		UserAgent:     utils.ToPtr("Test User Agent"),
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestAuditLog creates an audit log entry
func (tf *TestFixtures) CreateTestAuditLog(userID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)

	audit := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   utils.ToPtr("127.0.0.1"),
		UserAgent:   utils.ToPtr("Test User Agent"),
	}

	if !success {
		audit.ErrorMessage = utils.ToPtr("Test failed action")
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
