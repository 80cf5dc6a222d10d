package businessflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openclerk/branch-erp/app/dto"
	"github.com/openclerk/branch-erp/models"
	"github.com/openclerk/branch-erp/repository"
	"github.com/openclerk/branch-erp/utils"
	"gorm.io/gorm"
)

// LoanFlow handles the loan lifecycle from request through closure
type LoanFlow interface {
	RequestLoan(ctx context.Context, request *dto.RequestLoanRequest, actor *models.User, metadata *ClientMetadata) (*dto.RequestLoanResponse, error)
	ApproveLoan(ctx context.Context, loanUUID string, actor *models.User, metadata *ClientMetadata) (*dto.ApproveLoanResponse, error)
	RejectLoan(ctx context.Context, loanUUID string, request *dto.RejectLoanRequest, actor *models.User, metadata *ClientMetadata) (*dto.RejectLoanResponse, error)
	RecordPayment(ctx context.Context, loanUUID string, request *dto.RecordPaymentRequest, actor *models.User, metadata *ClientMetadata) (*dto.RecordPaymentResponse, error)
	GetLoan(ctx context.Context, loanUUID string) (*dto.GetLoanResponse, error)
	ListLoans(ctx context.Context, request *dto.ListLoansRequest) (*dto.ListLoansResponse, error)
}

// LoanFlowImpl implements the loan business flow
type LoanFlowImpl struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.LoanPaymentRepository
	userRepo    repository.UserRepository
	branchRepo  repository.BranchRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewLoanFlow creates a new loan flow instance
func NewLoanFlow(
	loanRepo repository.LoanRepository,
	paymentRepo repository.LoanPaymentRepository,
	userRepo repository.UserRepository,
	branchRepo repository.BranchRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) LoanFlow {
	return &LoanFlowImpl{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		branchRepo:  branchRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// RequestLoan opens a pending loan application for a user
func (lf *LoanFlowImpl) RequestLoan(ctx context.Context, request *dto.RequestLoanRequest, actor *models.User, metadata *ClientMetadata) (*dto.RequestLoanResponse, error) {
	if err := lf.validateLoanRequest(request); err != nil {
		return nil, NewBusinessError("REQUEST_LOAN_VALIDATION_FAILED", "Loan validation failed", err)
	}

	resp, err := lf.WithRequestLoanTransaction(ctx, func(ctx context.Context) (*dto.RequestLoanResponse, error) {
		user, err := lf.userRepo.ByUniqueID(ctx, request.UserUniqueID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		if !utils.IsTrue(user.IsActive) {
			return nil, ErrAccountInactive
		}

		loan := &models.Loan{
			UUID:         uuid.New(),
			UserID:       user.ID,
			BranchID:     user.BranchID,
			Principal:    request.Principal,
			InterestRate: request.InterestRate,
			TermMonths:   request.TermMonths,
			Currency:     utils.BDTCurrency,
			Status:       models.LoanStatusPending,
		}

		if err := lf.loanRepo.Save(ctx, loan); err != nil {
			return nil, err
		}

		return &dto.RequestLoanResponse{
			Message: "Loan requested",
			Loan:    ToLoanDTO(*loan, user.UniqueID, user.Branch.Code, 0),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Loan request failed: %s", err.Error())
		_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanRequested, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("REQUEST_LOAN_FAILED", "Loan request failed", err)
	}

	msg := fmt.Sprintf("Loan requested: %s for %s", resp.Loan.UUID, request.UserUniqueID)
	_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanRequested, msg, true, nil, metadata)

	return resp, nil
}

// ApproveLoan moves a pending loan to active and stamps the disbursement time.
// Admins and managers only.
func (lf *LoanFlowImpl) ApproveLoan(ctx context.Context, loanUUID string, actor *models.User, metadata *ClientMetadata) (*dto.ApproveLoanResponse, error) {
	if actor != nil && !actor.CanApproveLoans() {
		return nil, NewBusinessError("APPROVE_LOAN_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}

	resp, err := lf.WithApproveLoanTransaction(ctx, func(ctx context.Context) (*dto.ApproveLoanResponse, error) {
		loan, err := lf.loanRepo.ByUUIDForUpdate(ctx, loanUUID)
		if err != nil {
			return nil, err
		}
		if loan == nil {
			return nil, ErrLoanNotFound
		}
		if loan.Status != models.LoanStatusPending {
			return nil, ErrLoanNotPending
		}

		loan.Status = models.LoanStatusActive
		loan.DisbursedAt = utils.ToPtr(utils.UTCNow())
		if actor != nil {
			loan.ApprovedByUserID = &actor.ID
		}

		if err := lf.loanRepo.Update(ctx, loan); err != nil {
			return nil, err
		}

		userUniqueID, branchCode, err := lf.loanParties(ctx, loan)
		if err != nil {
			return nil, err
		}

		return &dto.ApproveLoanResponse{
			Message: "Loan approved",
			Loan:    ToLoanDTO(*loan, userUniqueID, branchCode, 0),
		}, nil
	})

	if err != nil {
		return nil, NewBusinessError("APPROVE_LOAN_FAILED", "Loan approval failed", err)
	}

	msg := fmt.Sprintf("Loan approved: %s", loanUUID)
	_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanApproved, msg, true, nil, metadata)

	return resp, nil
}

// RejectLoan declines a pending loan application
func (lf *LoanFlowImpl) RejectLoan(ctx context.Context, loanUUID string, request *dto.RejectLoanRequest, actor *models.User, metadata *ClientMetadata) (*dto.RejectLoanResponse, error) {
	if actor != nil && !actor.CanApproveLoans() {
		return nil, NewBusinessError("REJECT_LOAN_FORBIDDEN", "Insufficient role", ErrRoleNotPermitted)
	}

	resp, err := lf.WithRejectLoanTransaction(ctx, func(ctx context.Context) (*dto.RejectLoanResponse, error) {
		loan, err := lf.loanRepo.ByUUIDForUpdate(ctx, loanUUID)
		if err != nil {
			return nil, err
		}
		if loan == nil {
			return nil, ErrLoanNotFound
		}
		if loan.Status != models.LoanStatusPending {
			return nil, ErrLoanNotPending
		}

		loan.Status = models.LoanStatusRejected
		if err := lf.loanRepo.Update(ctx, loan); err != nil {
			return nil, err
		}

		userUniqueID, branchCode, err := lf.loanParties(ctx, loan)
		if err != nil {
			return nil, err
		}

		return &dto.RejectLoanResponse{
			Message: "Loan rejected",
			Loan:    ToLoanDTO(*loan, userUniqueID, branchCode, 0),
		}, nil
	})

	if err != nil {
		return nil, NewBusinessError("REJECT_LOAN_FAILED", "Loan rejection failed", err)
	}

	msg := fmt.Sprintf("Loan rejected: %s (%s)", loanUUID, request.Reason)
	_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanRejected, msg, true, nil, metadata)

	return resp, nil
}

// RecordPayment applies a repayment against an active loan. A payment that
// settles the full balance closes the loan in the same transaction.
func (lf *LoanFlowImpl) RecordPayment(ctx context.Context, loanUUID string, request *dto.RecordPaymentRequest, actor *models.User, metadata *ClientMetadata) (*dto.RecordPaymentResponse, error) {
	var closed bool

	resp, err := lf.WithRecordPaymentTransaction(ctx, func(ctx context.Context) (*dto.RecordPaymentResponse, error) {
		// Lock the loan row so concurrent payments serialize and the balance
		// check cannot race past the remaining amount.
		loan, err := lf.loanRepo.ByUUIDForUpdate(ctx, loanUUID)
		if err != nil {
			return nil, err
		}
		if loan == nil {
			return nil, ErrLoanNotFound
		}
		if !loan.IsOpen() {
			return nil, ErrLoanNotOpen
		}

		paidSoFar, err := lf.paymentRepo.SumByLoanID(ctx, loan.ID)
		if err != nil {
			return nil, err
		}

		balance := loan.TotalPayable() - paidSoFar
		if request.Amount > balance {
			return nil, ErrPaymentExceedsBalance
		}

		var receivedBy uint
		if actor != nil {
			receivedBy = actor.ID
		}

		payment := &models.LoanPayment{
			UUID:             uuid.New(),
			LoanID:           loan.ID,
			Amount:           request.Amount,
			Currency:         loan.Currency,
			Method:           request.Method,
			Note:             request.Note,
			ReceivedByUserID: receivedBy,
			PaidAt:           utils.UTCNow(),
		}

		if err := lf.paymentRepo.Save(ctx, payment); err != nil {
			return nil, err
		}

		totalPaid := paidSoFar + request.Amount
		if totalPaid >= loan.TotalPayable() {
			loan.Status = models.LoanStatusClosed
			loan.ClosedAt = utils.ToPtr(utils.UTCNow())
			if err := lf.loanRepo.Update(ctx, loan); err != nil {
				return nil, err
			}
			closed = true
		}

		userUniqueID, branchCode, err := lf.loanParties(ctx, loan)
		if err != nil {
			return nil, err
		}

		message := "Payment recorded"
		if closed {
			message = "Payment recorded and loan closed"
		}

		return &dto.RecordPaymentResponse{
			Message: message,
			Payment: ToLoanPaymentDTO(*payment),
			Loan:    ToLoanDTO(*loan, userUniqueID, branchCode, totalPaid),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Payment failed: %s", err.Error())
		_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanPaymentRecorded, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RECORD_PAYMENT_FAILED", "Payment recording failed", err)
	}

	msg := fmt.Sprintf("Payment recorded: %d on loan %s", request.Amount, loanUUID)
	_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanPaymentRecorded, msg, true, nil, metadata)
	if closed {
		closeMsg := fmt.Sprintf("Loan closed: %s", loanUUID)
		_ = lf.LogLoanAction(ctx, actor, models.AuditActionLoanClosed, closeMsg, true, nil, metadata)
	}

	return resp, nil
}

// GetLoan retrieves a loan with its payment history and balance
func (lf *LoanFlowImpl) GetLoan(ctx context.Context, loanUUID string) (*dto.GetLoanResponse, error) {
	loan, err := lf.loanRepo.ByUUID(ctx, loanUUID)
	if err != nil {
		return nil, NewBusinessError("GET_LOAN_FAILED", "Failed to fetch loan", err)
	}
	if loan == nil {
		return nil, NewBusinessError("LOAN_NOT_FOUND", "Loan not found", ErrLoanNotFound)
	}

	payments, err := lf.paymentRepo.ByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, NewBusinessError("GET_LOAN_FAILED", "Failed to fetch payments", err)
	}

	var totalPaid int64
	paymentDTOs := make([]dto.LoanPaymentDTO, 0, len(payments))
	for _, payment := range payments {
		totalPaid += payment.Amount
		paymentDTOs = append(paymentDTOs, ToLoanPaymentDTO(*payment))
	}

	userUniqueID, branchCode, err := lf.loanParties(ctx, loan)
	if err != nil {
		return nil, NewBusinessError("GET_LOAN_FAILED", "Failed to resolve loan parties", err)
	}

	return &dto.GetLoanResponse{
		Message:  "Loan retrieved",
		Loan:     ToLoanDTO(*loan, userUniqueID, branchCode, totalPaid),
		Payments: paymentDTOs,
	}, nil
}

// ListLoans retrieves loans matching the request filters
func (lf *LoanFlowImpl) ListLoans(ctx context.Context, request *dto.ListLoansRequest) (*dto.ListLoansResponse, error) {
	filter := models.LoanFilter{}

	if request.BranchCode != "" {
		branch, err := lf.branchRepo.ByCode(ctx, request.BranchCode)
		if err != nil {
			return nil, NewBusinessError("LIST_LOANS_FAILED", "Failed to list loans", err)
		}
		if branch == nil {
			return nil, NewBusinessError("BRANCH_NOT_FOUND", "Branch not found", ErrBranchNotFound)
		}
		filter.BranchID = &branch.ID
	}
	if request.Status != "" {
		filter.Status = &request.Status
	}

	limit := request.Limit
	if limit <= 0 {
		limit = 50
	}

	loans, err := lf.loanRepo.ByFilter(ctx, filter, "created_at DESC", limit)
	if err != nil {
		return nil, NewBusinessError("LIST_LOANS_FAILED", "Failed to list loans", err)
	}

	total, err := lf.loanRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_LOANS_FAILED", "Failed to count loans", err)
	}

	dtos := make([]dto.LoanDTO, 0, len(loans))
	for _, loan := range loans {
		totalPaid, err := lf.paymentRepo.SumByLoanID(ctx, loan.ID)
		if err != nil {
			return nil, NewBusinessError("LIST_LOANS_FAILED", "Failed to sum payments", err)
		}
		userUniqueID, branchCode, err := lf.loanParties(ctx, loan)
		if err != nil {
			return nil, NewBusinessError("LIST_LOANS_FAILED", "Failed to resolve loan parties", err)
		}
		dtos = append(dtos, ToLoanDTO(*loan, userUniqueID, branchCode, totalPaid))
	}

	return &dto.ListLoansResponse{
		Message: "Loans retrieved",
		Loans:   dtos,
		Total:   total,
	}, nil
}

// loanParties resolves the borrower's unique ID and the branch code for a loan
func (lf *LoanFlowImpl) loanParties(ctx context.Context, loan *models.Loan) (string, string, error) {
	user, err := lf.userRepo.ByID(ctx, loan.UserID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", ErrUserNotFound
	}

	branch, err := lf.branchRepo.ByID(ctx, loan.BranchID)
	if err != nil {
		return "", "", err
	}
	if branch == nil {
		return "", "", ErrBranchNotFound
	}

	return user.UniqueID, branch.Code, nil
}

func (lf *LoanFlowImpl) LogLoanAction(ctx context.Context, actor *models.User, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if actor != nil {
		userID = &actor.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return lf.auditRepo.Save(ctx, audit)
}

func (lf *LoanFlowImpl) WithRequestLoanTransaction(ctx context.Context, fn func(context.Context) (*dto.RequestLoanResponse, error)) (*dto.RequestLoanResponse, error) {
	var result *dto.RequestLoanResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoanFlowImpl) WithApproveLoanTransaction(ctx context.Context, fn func(context.Context) (*dto.ApproveLoanResponse, error)) (*dto.ApproveLoanResponse, error) {
	var result *dto.ApproveLoanResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoanFlowImpl) WithRejectLoanTransaction(ctx context.Context, fn func(context.Context) (*dto.RejectLoanResponse, error)) (*dto.RejectLoanResponse, error) {
	var result *dto.RejectLoanResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoanFlowImpl) WithRecordPaymentTransaction(ctx context.Context, fn func(context.Context) (*dto.RecordPaymentResponse, error)) (*dto.RecordPaymentResponse, error) {
	var result *dto.RecordPaymentResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoanFlowImpl) validateLoanRequest(request *dto.RequestLoanRequest) error {
	if request.Principal < utils.MinLoanPrincipal {
		return ErrPrincipalTooLow
	}
	if request.TermMonths > utils.MaxLoanTermMonths {
		return ErrTermTooLong
	}
	return nil
}
