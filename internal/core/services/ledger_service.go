package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/middleware"
	"github.com/sulimanbank/bankcore/internal/utils/pagination"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ledgerService serves reconciliation and account history. Balance is a
// derived projection; this is where it gets verified against the entry log.
type ledgerService struct {
	accountRepo   portsrepo.AccountRepositoryFacade
	operationRepo portsrepo.OperationRepositoryFacade
	locker        *AccountLocker
	lockWait      time.Duration
}

// NewLedgerService creates a new ledger service. The locker must be the same
// instance the transfer coordinator uses so reconciliation sees a quiescent
// account.
func NewLedgerService(accountRepo portsrepo.AccountRepositoryFacade, operationRepo portsrepo.OperationRepositoryFacade, locker *AccountLocker, lockWait time.Duration) portssvc.LedgerSvcFacade {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &ledgerService{
		accountRepo:   accountRepo,
		operationRepo: operationRepo,
		locker:        locker,
		lockWait:      lockWait,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// Reconcile implements portssvc.LedgerSvcFacade.
func (s *ledgerService) Reconcile(ctx context.Context, accountID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	release, err := s.locker.Acquire(ctx, []string{accountID}, s.lockWait)
	if err != nil {
		return err
	}
	defer release()

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	sum, err := s.operationRepo.SumEntryDeltas(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to sum entries for account %s: %w", accountID, err)
	}

	if sum != account.Balance.Amount {
		logger.Error("Ledger corruption detected",
			slog.String("account_id", accountID),
			slog.Int64("stored_balance", account.Balance.Amount),
			slog.Int64("entry_sum", sum),
		)
		// Halt further mutation on the account. The freeze is cleared by an
		// operator action outside this engine, never automatically.
		if freezeErr := s.accountRepo.SetAccountFrozen(ctx, accountID, true, "reconciler", time.Now().UTC()); freezeErr != nil {
			logger.Error("Failed to freeze corrupt account", slog.String("account_id", accountID), slog.String("error", freezeErr.Error()))
		}
		return fmt.Errorf("%w: account %s stored balance %d, entries sum to %d", apperrors.ErrLedgerCorruption, accountID, account.Balance.Amount, sum)
	}

	logger.Debug("Reconciliation passed", slog.String("account_id", accountID), slog.Int64("balance", sum))
	return nil
}

// GetHistory implements portssvc.LedgerSvcFacade.
func (s *ledgerService) GetHistory(ctx context.Context, accountID string, params dto.HistoryParams) (*dto.HistoryResponse, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	repoParams := portsrepo.ListEntriesParams{Limit: limit}
	if params.NextToken != nil {
		from, err := pagination.DecodeSequenceToken(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		repoParams.From = &from
	}

	entries, nextToken, err := s.operationRepo.ListEntriesByAccount(ctx, accountID, repoParams)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for account %s: %w", accountID, err)
	}

	resp := &dto.HistoryResponse{
		AccountID: accountID,
		Entries:   make([]dto.EntryResponse, 0, len(entries)),
		NextToken: nextToken,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.ToEntryResponse(e))
	}
	return resp, nil
}
