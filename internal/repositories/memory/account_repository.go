package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
)

type memAccountRepository struct {
	store *store
}

var _ portsrepo.AccountRepositoryFacade = (*memAccountRepository)(nil)

func (r *memAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	r.store.accounts[account.AccountID] = account
	return nil
}

func (r *memAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	acc, ok := r.store.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return &acc, nil
}

func (r *memAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		acc, ok := r.store.accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
		result[id] = acc
	}
	return result, nil
}

func (r *memAccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := make([]domain.Account, 0, len(r.store.accounts))
	for _, acc := range r.store.accounts {
		all = append(all, acc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []domain.Account{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memAccountRepository) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	acc, ok := r.store.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	acc.Status = status
	acc.Version++
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	r.store.accounts[accountID] = acc
	return nil
}

func (r *memAccountRepository) SetAccountFrozen(ctx context.Context, accountID string, frozen bool, userID string, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	acc, ok := r.store.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	acc.Frozen = frozen
	acc.Version++
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	r.store.accounts[accountID] = acc
	return nil
}
