package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/middleware"
	"github.com/sulimanbank/bankcore/internal/utils/accounting"
)

const (
	defaultInstallmentInterval = 7 * 24 * time.Hour
	defaultMissedThreshold     = 2
	outstandingCacheTTL        = 24 * time.Hour
)

// loanLockKey namespaces loan locks apart from account ids. Loan locks are
// always taken before any account lock, so the global acquisition order stays
// acyclic.
func loanLockKey(loanID string) string {
	return "loan/" + loanID
}

// loanService is the loan book. Disbursements and repayments are operations
// routed through the transfer coordinator; this service never touches balances
// itself.
type loanService struct {
	loanRepo    portsrepo.LoanRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
	transferSvc portssvc.TransferSvcFacade
	locker      *AccountLocker
	lockWait    time.Duration

	fundingAccountID    string
	settlementAccountID string
	maxPrincipal        int64 // 0 means uncapped
	installmentInterval time.Duration
	missedThreshold     int

	redis *redis.Client // Optional outstanding-balance cache; nil is fine
}

// LoanOption configures a loan service.
type LoanOption func(*loanService)

// WithLoanAccounts designates the funding account (disbursement source) and
// settlement account (repayment sink).
func WithLoanAccounts(fundingAccountID, settlementAccountID string) LoanOption {
	return func(s *loanService) {
		s.fundingAccountID = fundingAccountID
		s.settlementAccountID = settlementAccountID
	}
}

// WithMaxPrincipal caps the principal of a single loan, in minor units.
func WithMaxPrincipal(maxPrincipal int64) LoanOption {
	return func(s *loanService) { s.maxPrincipal = maxPrincipal }
}

// WithInstallmentInterval sets the spacing between installment due dates.
func WithInstallmentInterval(d time.Duration) LoanOption {
	return func(s *loanService) { s.installmentInterval = d }
}

// WithMissedThreshold sets how many consecutive overdue installments flip a
// loan to DEFAULTED.
func WithMissedThreshold(n int) LoanOption {
	return func(s *loanService) { s.missedThreshold = n }
}

// WithRedisCache enables the outstanding-balance cache.
func WithRedisCache(client *redis.Client) LoanOption {
	return func(s *loanService) { s.redis = client }
}

// NewLoanService creates the loan book service.
func NewLoanService(loanRepo portsrepo.LoanRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade, transferSvc portssvc.TransferSvcFacade, locker *AccountLocker, lockWait time.Duration, opts ...LoanOption) portssvc.LoanSvcFacade {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	s := &loanService{
		loanRepo:            loanRepo,
		accountRepo:         accountRepo,
		transferSvc:         transferSvc,
		locker:              locker,
		lockWait:            lockWait,
		installmentInterval: defaultInstallmentInterval,
		missedThreshold:     defaultMissedThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.LoanSvcFacade = (*loanService)(nil)

// OriginateLoan implements portssvc.LoanSvcFacade.
func (s *loanService) OriginateLoan(ctx context.Context, req dto.OriginateLoanRequest, callerID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if s.fundingAccountID == "" || s.settlementAccountID == "" {
		return nil, fmt.Errorf("%w: loan funding and settlement accounts are not configured", apperrors.ErrInternal)
	}
	if req.Principal <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive, got %d", apperrors.ErrValidation, req.Principal)
	}
	if s.maxPrincipal > 0 && req.Principal > s.maxPrincipal {
		return nil, fmt.Errorf("%w: principal %d exceeds the maximum of %d", apperrors.ErrValidation, req.Principal, s.maxPrincipal)
	}
	if req.Rate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must not be negative", apperrors.ErrValidation)
	}
	if req.TermInstallments <= 0 {
		return nil, fmt.Errorf("%w: term must be positive, got %d", apperrors.ErrValidation, req.TermInstallments)
	}

	policy := domain.InterestPolicy{
		Kind:              domain.PolicyKind(req.PolicyKind),
		Rate:              req.Rate,
		RoundingTolerance: req.RoundingTolerance,
	}
	if policy.Kind != domain.PolicyFlat && policy.Kind != domain.PolicySimple {
		return nil, fmt.Errorf("%w: unknown interest policy kind %q", apperrors.ErrValidation, policy.Kind)
	}

	borrower, err := s.accountRepo.FindAccountByID(ctx, req.BorrowerAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find borrower account %s: %w", req.BorrowerAccountID, err)
	}
	if borrower.Status != domain.AccountActive {
		return nil, fmt.Errorf("%w: borrower account %s is %s", apperrors.ErrAccountNotActive, borrower.AccountID, borrower.Status)
	}
	if borrower.CurrencyCode != req.CurrencyCode {
		return nil, fmt.Errorf("%w: borrower account holds %s, loan is %s", apperrors.ErrCurrencyMismatch, borrower.CurrencyCode, req.CurrencyCode)
	}

	// Disburse the principal. Insufficient funding-account funds surface here
	// as ErrInsufficientFunds before any loan record exists.
	result, err := s.transferSvc.TransferAs(ctx, domain.OpLoanDisbursement, dto.TransferRequest{
		FromAccountID:  s.fundingAccountID,
		ToAccountID:    req.BorrowerAccountID,
		Amount:         req.Principal,
		CurrencyCode:   req.CurrencyCode,
		IdempotencyKey: req.IdempotencyKey,
	}, callerID)
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		// The disbursement already happened on a previous call; return the
		// loan it created instead of issuing a second one.
		existing, err := s.loanRepo.FindLoanByDisbursementOperationID(ctx, result.Operation.OperationID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up loan for replayed disbursement %s: %w", result.Operation.OperationID, err)
		}
		// The earlier call died between the disbursement commit and the loan
		// write. The schedule is a pure function of the request and the
		// committed operation, so the record can be rebuilt on retry.
		logger.Warn("Disbursement committed without a loan record; rebuilding",
			slog.String("operation_id", result.Operation.OperationID),
			slog.String("borrower_account_id", req.BorrowerAccountID),
		)
	}

	return s.createLoan(ctx, req, policy, result.Operation, callerID)
}

// createLoan writes the loan record for a committed disbursement. Installment
// due dates anchor on the operation's commit time, so rebuilding after a
// storage failure yields the identical schedule.
func (s *loanService) createLoan(ctx context.Context, req dto.OriginateLoanRequest, policy domain.InterestPolicy, op domain.Operation, callerID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	principal := domain.NewMoney(req.Principal, req.CurrencyCode)
	loanID := uuid.NewString()
	installments, totalDue, err := accounting.BuildSchedule(loanID, principal, policy, req.TermInstallments, op.CreatedAt, s.installmentInterval)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loan := domain.Loan{
		LoanID:                  loanID,
		BorrowerAccountID:       req.BorrowerAccountID,
		Principal:               principal,
		Policy:                  policy,
		TotalDue:                totalDue,
		TotalRepaid:             domain.Zero(req.CurrencyCode),
		Outstanding:             totalDue,
		Status:                  domain.LoanActive,
		DisbursementOperationID: op.OperationID,
		Installments:            installments,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     callerID,
			LastUpdatedAt: now,
			LastUpdatedBy: callerID,
		},
	}

	if err := s.loanRepo.SaveLoan(ctx, loan); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// A concurrent retry of the same disbursement won the write race.
			return s.loanRepo.FindLoanByDisbursementOperationID(ctx, op.OperationID)
		}
		logger.Error("Failed to save loan after disbursement", slog.String("loan_id", loanID), slog.String("operation_id", op.OperationID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	s.cacheOutstanding(ctx, loan.LoanID, loan.Outstanding)
	logger.Info("Loan originated",
		slog.String("loan_id", loanID),
		slog.String("borrower_account_id", req.BorrowerAccountID),
		slog.Int64("principal", req.Principal),
		slog.Int("term", req.TermInstallments),
	)
	return &loan, nil
}

// RepayLoan implements portssvc.LoanSvcFacade.
func (s *loanService) RepayLoan(ctx context.Context, req dto.RepayLoanRequest, callerID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: repayment amount must be positive, got %d", apperrors.ErrValidation, req.Amount)
	}

	release, err := s.locker.Acquire(ctx, []string{loanLockKey(req.LoanID)}, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.loanRepo.FindLoanByID(ctx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("failed to find loan %s: %w", req.LoanID, err)
	}
	if loan.Status != domain.LoanActive {
		return nil, fmt.Errorf("%w: loan %s is %s", apperrors.ErrLoanNotActive, loan.LoanID, loan.Status)
	}
	if loan.Principal.CurrencyCode != req.CurrencyCode {
		return nil, fmt.Errorf("%w: loan is %s, repayment is %s", apperrors.ErrCurrencyMismatch, loan.Principal.CurrencyCode, req.CurrencyCode)
	}
	if req.Amount > loan.Outstanding.Amount+loan.Policy.RoundingTolerance {
		return nil, fmt.Errorf("%w: outstanding is %d, repayment of %d exceeds it beyond the tolerance of %d",
			apperrors.ErrOverRepayment, loan.Outstanding.Amount, req.Amount, loan.Policy.RoundingTolerance)
	}

	// A repayment is itself a transfer into the settlement account.
	result, err := s.transferSvc.TransferAs(ctx, domain.OpLoanRepayment, dto.TransferRequest{
		FromAccountID:  loan.BorrowerAccountID,
		ToAccountID:    s.settlementAccountID,
		Amount:         req.Amount,
		CurrencyCode:   req.CurrencyCode,
		IdempotencyKey: req.IdempotencyKey,
	}, callerID)
	if err != nil {
		return nil, err
	}
	if result.Replayed && loan.HasRepaymentOperation(result.Operation.OperationID) {
		// Already applied and persisted on a previous call.
		return loan, nil
	}
	// Either a fresh commit, or a replayed one whose loan write-back was lost
	// before this retry. Apply the accounting exactly once.

	now := time.Now().UTC()
	loan.TotalRepaid = domain.NewMoney(loan.TotalRepaid.Amount+req.Amount, req.CurrencyCode)
	outstanding := loan.TotalDue.Amount - loan.TotalRepaid.Amount
	if outstanding < 0 {
		outstanding = 0
	}
	loan.Outstanding = domain.NewMoney(outstanding, req.CurrencyCode)

	// Mark installments paid in due-date order, earliest first.
	var cumulativeDue int64
	for i := range loan.Installments {
		cumulativeDue += loan.Installments[i].DueAmount.Amount
		if loan.Installments[i].Status == domain.InstallmentPaid {
			continue
		}
		if loan.TotalRepaid.Amount >= cumulativeDue {
			paidAt := now
			loan.Installments[i].Status = domain.InstallmentPaid
			loan.Installments[i].PaidAt = &paidAt
		}
	}

	if loan.Outstanding.IsZero() {
		loan.Status = domain.LoanPaidOff
	}
	loan.RepaymentOperationIDs = append(loan.RepaymentOperationIDs, result.Operation.OperationID)
	loan.LastUpdatedAt = now
	loan.LastUpdatedBy = callerID

	if err := s.loanRepo.UpdateLoan(ctx, *loan); err != nil {
		logger.Error("Failed to persist repayment", slog.String("loan_id", loan.LoanID), slog.String("operation_id", result.Operation.OperationID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update loan %s: %w", loan.LoanID, err)
	}

	s.cacheOutstanding(ctx, loan.LoanID, loan.Outstanding)
	logger.Info("Loan repayment applied",
		slog.String("loan_id", loan.LoanID),
		slog.Int64("amount", req.Amount),
		slog.Int64("outstanding", loan.Outstanding.Amount),
		slog.String("status", string(loan.Status)),
	)
	return loan, nil
}

// GetLoanByID implements portssvc.LoanSvcFacade.
func (s *loanService) GetLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	return loan, nil
}

// GetOutstanding implements portssvc.LoanSvcFacade.
func (s *loanService) GetOutstanding(ctx context.Context, loanID string) (domain.Money, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, outstandingCacheKey(loanID)).Result(); err == nil {
			if amount, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				if currency, cerr := s.redis.Get(ctx, currencyCacheKey(loanID)).Result(); cerr == nil {
					return domain.NewMoney(amount, currency), nil
				}
			}
		} else if !errors.Is(err, redis.Nil) {
			middleware.GetLoggerFromCtx(ctx).Warn("Outstanding cache read failed", slog.String("loan_id", loanID), slog.String("error", err.Error()))
		}
	}

	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return domain.Money{}, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	s.cacheOutstanding(ctx, loanID, loan.Outstanding)
	return loan.Outstanding, nil
}

// MarkOverdueAndDefaults implements portssvc.LoanSvcFacade.
func (s *loanService) MarkOverdueAndDefaults(ctx context.Context, asOf time.Time) (dto.DelinquencySweepResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	var sweep dto.DelinquencySweepResult

	marked, err := s.loanRepo.MarkInstallmentsOverdue(ctx, asOf)
	if err != nil {
		return sweep, fmt.Errorf("failed to mark overdue installments: %w", err)
	}
	sweep.InstallmentsMarkedOverdue = marked

	loans, err := s.loanRepo.ListActiveLoans(ctx)
	if err != nil {
		return sweep, fmt.Errorf("failed to list active loans: %w", err)
	}

	for i := range loans {
		if !s.isDefaulted(loans[i]) {
			continue
		}
		defaulted, err := s.defaultLoan(ctx, loans[i].LoanID, asOf)
		if err != nil {
			logger.Error("Failed to mark loan defaulted", slog.String("loan_id", loans[i].LoanID), slog.String("error", err.Error()))
			continue
		}
		if defaulted {
			sweep.LoansDefaulted++
			logger.Warn("Loan defaulted", slog.String("loan_id", loans[i].LoanID), slog.String("borrower_account_id", loans[i].BorrowerAccountID))
		}
	}

	logger.Info("Delinquency sweep finished",
		slog.Int64("installments_marked_overdue", sweep.InstallmentsMarkedOverdue),
		slog.Int("loans_defaulted", sweep.LoansDefaulted),
	)
	return sweep, nil
}

// defaultLoan re-reads the loan under its lock before flipping it to
// DEFAULTED. The sweep's snapshot may be stale: a repayment that committed
// since it was taken must never be overwritten.
func (s *loanService) defaultLoan(ctx context.Context, loanID string, asOf time.Time) (bool, error) {
	release, err := s.locker.Acquire(ctx, []string{loanLockKey(loanID)}, s.lockWait)
	if err != nil {
		return false, err
	}
	defer release()

	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return false, err
	}
	if loan.Status != domain.LoanActive || !s.isDefaulted(*loan) {
		return false, nil
	}

	loan.Status = domain.LoanDefaulted
	loan.LastUpdatedAt = asOf
	loan.LastUpdatedBy = "delinquency-sweep"
	if err := s.loanRepo.UpdateLoan(ctx, *loan); err != nil {
		return false, err
	}
	return true, nil
}

// isDefaulted counts consecutive overdue installments; a paid installment
// resets the run.
func (s *loanService) isDefaulted(loan domain.Loan) bool {
	consecutive := 0
	for _, inst := range loan.Installments {
		switch inst.Status {
		case domain.InstallmentOverdue:
			consecutive++
			if consecutive >= s.missedThreshold {
				return true
			}
		case domain.InstallmentPaid:
			consecutive = 0
		default:
			// Pending installments are not yet due; stop counting.
			return false
		}
	}
	return false
}

func outstandingCacheKey(loanID string) string {
	return "loan:outstanding:" + loanID
}

func currencyCacheKey(loanID string) string {
	return "loan:currency:" + loanID
}

func (s *loanService) cacheOutstanding(ctx context.Context, loanID string, outstanding domain.Money) {
	if s.redis == nil {
		return
	}
	// Both keys must land for GetOutstanding to serve a hit.
	if err := s.redis.Set(ctx, outstandingCacheKey(loanID), strconv.FormatInt(outstanding.Amount, 10), outstandingCacheTTL).Err(); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Outstanding cache write failed", slog.String("loan_id", loanID), slog.String("error", err.Error()))
		return
	}
	if err := s.redis.Set(ctx, currencyCacheKey(loanID), outstanding.CurrencyCode, outstandingCacheTTL).Err(); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Outstanding cache write failed", slog.String("loan_id", loanID), slog.String("error", err.Error()))
	}
}
