package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/middleware"
)

// accountService is the account-management collaborator. It owns lifecycle
// status; balances belong to the transfer coordinator.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
	locker      *AccountLocker
	lockWait    time.Duration
}

// NewAccountService creates a new account service. Status transitions take the
// account's exclusive lock so they cannot race in-flight money movement.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, locker *AccountLocker, lockWait time.Duration) portssvc.AccountSvcFacade {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &accountService{accountRepo: accountRepo, locker: locker, lockWait: lockWait}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount implements portssvc.AccountSvcFacade.
func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		CurrencyCode: req.CurrencyCode,
		Status:       domain.AccountActive,
		Balance:      domain.Zero(req.CurrencyCode),
		Version:      1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		logger.Error("Failed to save account", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("owner_id", account.OwnerID))
	return &account, nil
}

// GetAccountByID implements portssvc.AccountSvcFacade.
func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return account, nil
}

// ListAccounts implements portssvc.AccountSvcFacade.
func (s *accountService) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.accountRepo.ListAccounts(ctx, limit, offset)
}

// SuspendAccount implements portssvc.AccountSvcFacade.
func (s *accountService) SuspendAccount(ctx context.Context, accountID string, callerID string) (*domain.Account, error) {
	return s.transition(ctx, accountID, callerID, domain.AccountSuspended, func(a *domain.Account) error {
		if a.Status != domain.AccountActive {
			return fmt.Errorf("%w: cannot suspend account %s in status %s", apperrors.ErrValidation, a.AccountID, a.Status)
		}
		return nil
	})
}

// ReactivateAccount implements portssvc.AccountSvcFacade.
func (s *accountService) ReactivateAccount(ctx context.Context, accountID string, callerID string) (*domain.Account, error) {
	return s.transition(ctx, accountID, callerID, domain.AccountActive, func(a *domain.Account) error {
		if a.Status != domain.AccountSuspended {
			// Closed accounts are never resurrected.
			return fmt.Errorf("%w: cannot reactivate account %s in status %s", apperrors.ErrValidation, a.AccountID, a.Status)
		}
		return nil
	})
}

// CloseAccount implements portssvc.AccountSvcFacade.
func (s *accountService) CloseAccount(ctx context.Context, accountID string, callerID string) (*domain.Account, error) {
	return s.transition(ctx, accountID, callerID, domain.AccountClosed, func(a *domain.Account) error {
		if a.Status == domain.AccountClosed {
			return fmt.Errorf("%w: account %s", apperrors.ErrAccountClosed, a.AccountID)
		}
		if !a.Balance.IsZero() {
			return fmt.Errorf("%w: cannot close account %s with balance %d", apperrors.ErrValidation, a.AccountID, a.Balance.Amount)
		}
		return nil
	})
}

func (s *accountService) transition(ctx context.Context, accountID string, callerID string, target domain.AccountStatus, check func(*domain.Account) error) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	release, err := s.locker.Acquire(ctx, []string{accountID}, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	if err := check(account); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.accountRepo.UpdateAccountStatus(ctx, accountID, target, callerID, now); err != nil {
		logger.Error("Failed to update account status", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update account status: %w", err)
	}

	account.Status = target
	account.Version++
	account.LastUpdatedAt = now
	account.LastUpdatedBy = callerID

	logger.Info("Account status changed", slog.String("account_id", accountID), slog.String("status", string(target)))
	return account, nil
}
