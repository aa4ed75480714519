package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/middleware"
)

const defaultLockWait = 5 * time.Second

// legRole determines which eligibility rule applies to an account's leg.
type legRole int

const (
	roleDebit  legRole = iota // Money leaves; account must be ACTIVE
	roleCredit                // Money lands; account must not be CLOSED
)

// leg is one signed balance movement within an operation.
type leg struct {
	accountID string
	delta     int64 // Signed minor units
	role      legRole
}

// transferService is the transfer coordinator: the single point of truth for
// money movement. It validates, acquires ordered per-account locks, applies
// balance deltas and commits each operation's entry set atomically.
type transferService struct {
	accountRepo   portsrepo.AccountRepositoryFacade
	operationRepo portsrepo.OperationRepositoryFacade
	locker        *AccountLocker
	lockWait      time.Duration
	feeRate       decimal.Decimal
	feeAccountID  string
}

// TransferOption configures a transfer service.
type TransferOption func(*transferService)

// WithLockWait bounds the wait for per-account exclusive access.
func WithLockWait(d time.Duration) TransferOption {
	return func(s *transferService) { s.lockWait = d }
}

// WithFeePolicy routes a percentage of each withdrawal and transfer into the
// fee account as an extra entry of the same operation.
func WithFeePolicy(rate decimal.Decimal, feeAccountID string) TransferOption {
	return func(s *transferService) {
		s.feeRate = rate
		s.feeAccountID = feeAccountID
	}
}

// NewTransferService creates the transfer coordinator.
func NewTransferService(accountRepo portsrepo.AccountRepositoryFacade, operationRepo portsrepo.OperationRepositoryFacade, locker *AccountLocker, opts ...TransferOption) portssvc.TransferSvcFacade {
	s := &transferService{
		accountRepo:   accountRepo,
		operationRepo: operationRepo,
		locker:        locker,
		lockWait:      defaultLockWait,
		feeRate:       decimal.Zero,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.TransferSvcFacade = (*transferService)(nil)

func (s *transferService) feeFor(amount domain.Money) domain.Money {
	if s.feeAccountID == "" || s.feeRate.IsZero() {
		return domain.Zero(amount.CurrencyCode)
	}
	return amount.Scale(s.feeRate)
}

// Deposit implements portssvc.TransferSvcFacade.
func (s *transferService) Deposit(ctx context.Context, req dto.DepositRequest, callerID string) (*domain.OperationResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive, got %d", apperrors.ErrValidation, req.Amount)
	}
	legs := []leg{{accountID: req.AccountID, delta: req.Amount, role: roleCredit}}
	return s.execute(ctx, domain.OpDeposit, req.IdempotencyKey, req.CurrencyCode, legs, callerID)
}

// Withdraw implements portssvc.TransferSvcFacade.
func (s *transferService) Withdraw(ctx context.Context, req dto.WithdrawRequest, callerID string) (*domain.OperationResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive, got %d", apperrors.ErrValidation, req.Amount)
	}
	legs := []leg{{accountID: req.AccountID, delta: -req.Amount, role: roleDebit}}
	if fee := s.feeFor(domain.NewMoney(req.Amount, req.CurrencyCode)); fee.IsPositive() {
		legs = append(legs, leg{accountID: s.feeAccountID, delta: fee.Amount, role: roleCredit})
	}
	return s.execute(ctx, domain.OpWithdrawal, req.IdempotencyKey, req.CurrencyCode, legs, callerID)
}

// Transfer implements portssvc.TransferSvcFacade.
func (s *transferService) Transfer(ctx context.Context, req dto.TransferRequest, callerID string) (*domain.OperationResult, error) {
	return s.TransferAs(ctx, domain.OpTransfer, req, callerID)
}

// TransferAs implements portssvc.TransferSvcFacade.
func (s *transferService) TransferAs(ctx context.Context, kind domain.OperationKind, req dto.TransferRequest, callerID string) (*domain.OperationResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive, got %d", apperrors.ErrValidation, req.Amount)
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("%w: source and destination accounts must be distinct", apperrors.ErrValidation)
	}

	credited := req.Amount
	legs := []leg{{accountID: req.FromAccountID, delta: -req.Amount, role: roleDebit}}
	// Fees only apply to caller-facing transfers, never to loan movements.
	if kind == domain.OpTransfer {
		if fee := s.feeFor(domain.NewMoney(req.Amount, req.CurrencyCode)); fee.IsPositive() {
			credited -= fee.Amount
			legs = append(legs, leg{accountID: s.feeAccountID, delta: fee.Amount, role: roleCredit})
		}
	}
	legs = append(legs, leg{accountID: req.ToAccountID, delta: credited, role: roleCredit})

	return s.execute(ctx, kind, req.IdempotencyKey, req.CurrencyCode, legs, callerID)
}

// execute runs one atomic operation: replay check, ordered locks, eligibility
// and funds validation, then an all-or-nothing commit of the entry set.
func (s *transferService) execute(ctx context.Context, kind domain.OperationKind, idempotencyKey string, currencyCode string, legs []leg, callerID string) (*domain.OperationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if idempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", apperrors.ErrValidation)
	}

	// Fast path: a previously committed operation with this key is replayed
	// without re-applying any effect.
	if result, err := s.replay(ctx, idempotencyKey); err == nil {
		logger.Info("Idempotent replay served", slog.String("idempotency_key", idempotencyKey), slog.String("operation_id", result.Operation.OperationID))
		return result, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	accountIDs := make([]string, 0, len(legs))
	for _, lg := range legs {
		accountIDs = append(accountIDs, lg.accountID)
	}

	release, err := s.locker.Acquire(ctx, accountIDs, s.lockWait)
	if err != nil {
		if errors.Is(err, apperrors.ErrOperationTimeout) {
			logger.Warn("Lock acquisition timed out", slog.String("kind", string(kind)), slog.String("idempotency_key", idempotencyKey))
		}
		return nil, err
	}
	defer release()

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	now := time.Now().UTC()
	operationID := uuid.NewString()

	entries := make([]domain.LedgerEntry, 0, len(legs))
	entryIDs := make([]string, 0, len(legs))
	updated := make(map[string]domain.Account, len(legs))

	for _, lg := range legs {
		acc, found := accounts[lg.accountID]
		if !found {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, lg.accountID)
		}
		// Later legs see the balance left by earlier legs of this operation.
		if prev, ok := updated[lg.accountID]; ok {
			acc = prev
		}

		if err := s.checkEligibility(acc, lg); err != nil {
			return nil, err
		}
		if acc.CurrencyCode != currencyCode {
			return nil, fmt.Errorf("%w: account %s holds %s, operation is %s", apperrors.ErrCurrencyMismatch, acc.AccountID, acc.CurrencyCode, currencyCode)
		}

		newBalance := acc.Balance.Amount + lg.delta
		if newBalance < 0 {
			return nil, fmt.Errorf("%w: account %s balance %d, requested %d", apperrors.ErrInsufficientFunds, acc.AccountID, acc.Balance.Amount, -lg.delta)
		}

		if _, ok := updated[lg.accountID]; !ok {
			acc.Version++
		}
		acc.Balance = domain.NewMoney(newBalance, acc.CurrencyCode)
		acc.LastEntrySeq++
		acc.LastUpdatedAt = now
		acc.LastUpdatedBy = callerID

		entry := domain.LedgerEntry{
			EntryID:          uuid.NewString(),
			AccountID:        acc.AccountID,
			Sequence:         acc.LastEntrySeq,
			Delta:            domain.NewMoney(lg.delta, currencyCode),
			ResultingBalance: acc.Balance,
			OperationID:      operationID,
			CreatedAt:        now,
		}
		entries = append(entries, entry)
		entryIDs = append(entryIDs, entry.EntryID)
		updated[acc.AccountID] = acc
	}

	op := domain.Operation{
		OperationID:    operationID,
		Kind:           kind,
		IdempotencyKey: idempotencyKey,
		Status:         domain.OpCommitted,
		EntryIDs:       entryIDs,
		CreatedAt:      now,
		CreatedBy:      callerID,
	}

	committed, err := s.operationRepo.SaveOperation(ctx, op, entries, updated)
	if err != nil {
		// Lost a commit race on the idempotency key: serve the winner's result.
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.replay(ctx, idempotencyKey)
		}
		logger.Error("Failed to commit operation", slog.String("operation_id", operationID), slog.String("error", err.Error()))
		return nil, err
	}

	balances := make(map[string]domain.Money, len(updated))
	for id, acc := range updated {
		balances[id] = acc.Balance
	}

	logger.Info("Operation committed",
		slog.String("operation_id", committed.OperationID),
		slog.String("kind", string(kind)),
		slog.Int64("sequence_no", committed.SequenceNo),
	)
	return &domain.OperationResult{Operation: *committed, Balances: balances}, nil
}

func (s *transferService) checkEligibility(acc domain.Account, lg leg) error {
	if acc.Frozen {
		return fmt.Errorf("%w: account %s is frozen pending manual reconciliation", apperrors.ErrLedgerCorruption, acc.AccountID)
	}
	switch lg.role {
	case roleDebit:
		if acc.Status != domain.AccountActive {
			return fmt.Errorf("%w: account %s is %s", apperrors.ErrAccountNotActive, acc.AccountID, acc.Status)
		}
	case roleCredit:
		if acc.Status == domain.AccountClosed {
			return fmt.Errorf("%w: account %s", apperrors.ErrAccountClosed, acc.AccountID)
		}
	}
	return nil
}

// replay reconstructs the result of a previously committed operation from the
// audit log.
func (s *transferService) replay(ctx context.Context, idempotencyKey string) (*domain.OperationResult, error) {
	op, err := s.operationRepo.FindOperationByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	entries, err := s.operationRepo.FindEntriesByOperationID(ctx, op.OperationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for replay of operation %s: %w", op.OperationID, err)
	}
	balances := make(map[string]domain.Money, len(entries))
	for _, e := range entries {
		balances[e.AccountID] = e.ResultingBalance
	}
	return &domain.OperationResult{Operation: *op, Balances: balances, Replayed: true}, nil
}
