// Package tests contains integration tests for the loan lifecycle
package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/openclerk/branch-erp/app/dto"
	businessflow "github.com/openclerk/branch-erp/business_flow"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	testingutil "github.com/openclerk/branch-erp/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoanFlow(testDB *testingutil.TestDB) businessflow.LoanFlow {
	return businessflow.NewLoanFlow(
		repository.NewLoanRepository(testDB.DB),
		repository.NewLoanPaymentRepository(testDB.DB),
		repository.NewUserRepository(testDB.DB),
		repository.NewBranchRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func TestLoanFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		loanFlow := newLoanFlow(testDB)
		ctx := context.Background()

		branch, err := fixtures.CreateTestBranch("DH")
		require.NoError(t, err)
		manager, err := fixtures.CreateTestUser(branch, models.RoleManager)
		require.NoError(t, err)
		officer, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
		require.NoError(t, err)
		borrower, err := fixtures.CreateTestUser(branch, models.RoleOfficer)
		require.NoError(t, err)

		t.Run("FullLifecycleWithAutoClose", func(t *testing.T) {
			// 1,200 taka principal at 12 percent flat over 12 months
			requested, err := loanFlow.RequestLoan(ctx, &dto.RequestLoanRequest{
				UserUniqueID: borrower.UniqueID,
				Principal:    120000,
				InterestRate: 12.0,
				TermMonths:   12,
			}, officer, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.LoanStatusPending, requested.Loan.Status)
			assert.Equal(t, int64(134400), requested.Loan.TotalPayable)

			approved, err := loanFlow.ApproveLoan(ctx, requested.Loan.UUID, manager, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.LoanStatusActive, approved.Loan.Status)
			assert.NotNil(t, approved.Loan.DisbursedAt)

			// Partial payment leaves the loan open
			partial, err := loanFlow.RecordPayment(ctx, requested.Loan.UUID, &dto.RecordPaymentRequest{
				Amount: 100000,
				Method: models.PaymentMethodCash,
			}, officer, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.LoanStatusActive, partial.Loan.Status)
			assert.Equal(t, int64(34400), partial.Loan.Balance)

			// Settling the remaining balance closes the loan
			final, err := loanFlow.RecordPayment(ctx, requested.Loan.UUID, &dto.RecordPaymentRequest{
				Amount: 34400,
				Method: models.PaymentMethodBank,
			}, officer, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.LoanStatusClosed, final.Loan.Status)
			assert.Equal(t, int64(0), final.Loan.Balance)
			assert.NotNil(t, final.Loan.ClosedAt)

			fetched, err := loanFlow.GetLoan(ctx, requested.Loan.UUID)
			require.NoError(t, err)
			assert.Len(t, fetched.Payments, 2)
			assert.Equal(t, int64(134400), fetched.Loan.TotalPaid)
		})

		t.Run("PaymentAboveBalanceRejected", func(t *testing.T) {
			loan, err := fixtures.CreateTestLoan(borrower, models.LoanStatusActive, 100000)
			require.NoError(t, err)

			_, err = loanFlow.RecordPayment(ctx, loan.UUID.String(), &dto.RecordPaymentRequest{
				Amount: 10000000,
				Method: models.PaymentMethodCash,
			}, officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsPaymentExceedsBalance(err))
		})

		t.Run("ConcurrentPaymentsCannotOverpay", func(t *testing.T) {
			// Total payable is 112,000 poisha, so only one of the
			// 100,000 payments fits. The loan row lock serializes them.
			loan, err := fixtures.CreateTestLoan(borrower, models.LoanStatusActive, 100000)
			require.NoError(t, err)

			const workers = 8
			var wg sync.WaitGroup
			successes := make(chan int64, workers)

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					resp, err := loanFlow.RecordPayment(ctx, loan.UUID.String(), &dto.RecordPaymentRequest{
						Amount: 100000,
						Method: models.PaymentMethodCash,
					}, officer, testMetadata())
					if err == nil {
						successes <- resp.Payment.Amount
					}
				}()
			}
			wg.Wait()
			close(successes)

			var total int64
			var count int
			for amount := range successes {
				total += amount
				count++
			}
			assert.Equal(t, 1, count)
			assert.Equal(t, int64(100000), total)

			current, err := loanFlow.GetLoan(ctx, loan.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, int64(100000), current.Loan.TotalPaid)
			assert.Equal(t, models.LoanStatusActive, current.Loan.Status)
			assert.Len(t, current.Payments, 1)
		})

		t.Run("PaymentOnPendingLoanRejected", func(t *testing.T) {
			loan, err := fixtures.CreateTestLoan(borrower, models.LoanStatusPending, 100000)
			require.NoError(t, err)

			_, err = loanFlow.RecordPayment(ctx, loan.UUID.String(), &dto.RecordPaymentRequest{
				Amount: 1000,
				Method: models.PaymentMethodCash,
			}, officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsLoanNotOpen(err))
		})

		t.Run("OfficerCannotApprove", func(t *testing.T) {
			loan, err := fixtures.CreateTestLoan(borrower, models.LoanStatusPending, 100000)
			require.NoError(t, err)

			_, err = loanFlow.ApproveLoan(ctx, loan.UUID.String(), officer, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsRoleNotPermitted(err))
		})

		t.Run("RejectPendingLoan", func(t *testing.T) {
			loan, err := fixtures.CreateTestLoan(borrower, models.LoanStatusPending, 100000)
			require.NoError(t, err)

			rejected, err := loanFlow.RejectLoan(ctx, loan.UUID.String(), &dto.RejectLoanRequest{
				Reason: "Insufficient income documents",
			}, manager, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.LoanStatusRejected, rejected.Loan.Status)

			// A rejected loan cannot be approved afterwards
			_, err = loanFlow.ApproveLoan(ctx, loan.UUID.String(), manager, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsLoanNotPending(err))
		})

		t.Run("RequestBelowMinimumPrincipalFails", func(t *testing.T) {
			_, err := loanFlow.RequestLoan(ctx, &dto.RequestLoanRequest{
				UserUniqueID: borrower.UniqueID,
				Principal:    500,
				InterestRate: 12.0,
				TermMonths:   12,
			}, officer, testMetadata())
			require.Error(t, err)
		})

		t.Run("ListLoansByStatus", func(t *testing.T) {
			resp, err := loanFlow.ListLoans(ctx, &dto.ListLoansRequest{
				BranchCode: "DH",
				Status:     models.LoanStatusRejected,
			})
			require.NoError(t, err)
			require.NotEmpty(t, resp.Loans)
			for _, loan := range resp.Loans {
				assert.Equal(t, models.LoanStatusRejected, loan.Status)
			}
		})

		return nil
	})
	require.NoError(t, err)
}
