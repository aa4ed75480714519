package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	"github.com/sulimanbank/bankcore/internal/utils/pagination"
)

type memOperationRepository struct {
	store *store
}

var _ portsrepo.OperationRepositoryFacade = (*memOperationRepository)(nil)

// SaveOperation commits the operation, its entries and the account snapshots
// under one lock, mirroring the pgsql adapter's transaction.
func (r *memOperationRepository) SaveOperation(ctx context.Context, op domain.Operation, entries []domain.LedgerEntry, updatedAccounts map[string]domain.Account) (*domain.Operation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.byIdempotency[op.IdempotencyKey]; exists {
		return nil, fmt.Errorf("%w: idempotency key %s", apperrors.ErrDuplicate, op.IdempotencyKey)
	}

	for id, next := range updatedAccounts {
		current, ok := r.store.accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
		if current.Version != next.Version-1 {
			return nil, fmt.Errorf("%w: account %s stored version %d, expected %d", apperrors.ErrStaleVersion, id, current.Version, next.Version-1)
		}
	}

	for id, next := range updatedAccounts {
		r.store.accounts[id] = next
	}
	r.store.entries = append(r.store.entries, entries...)

	committed := cloneOperation(op)
	committed.SequenceNo = r.store.nextSequenceNo
	r.store.nextSequenceNo++
	r.store.operations[committed.OperationID] = committed
	r.store.byIdempotency[committed.IdempotencyKey] = committed.OperationID

	result := cloneOperation(committed)
	return &result, nil
}

func (r *memOperationRepository) FindOperationByID(ctx context.Context, operationID string) (*domain.Operation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	op, ok := r.store.operations[operationID]
	if !ok {
		return nil, fmt.Errorf("%w: operation %s", apperrors.ErrNotFound, operationID)
	}
	result := cloneOperation(op)
	return &result, nil
}

func (r *memOperationRepository) FindOperationByIdempotencyKey(ctx context.Context, key string) (*domain.Operation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	opID, ok := r.store.byIdempotency[key]
	if !ok {
		return nil, fmt.Errorf("%w: operation with idempotency key %s", apperrors.ErrNotFound, key)
	}
	result := cloneOperation(r.store.operations[opID])
	return &result, nil
}

func (r *memOperationRepository) FindEntriesByOperationID(ctx context.Context, operationID string) ([]domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, e := range r.store.entries {
		if e.OperationID == operationID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memOperationRepository) ListEntriesByAccount(ctx context.Context, accountID string, params portsrepo.ListEntriesParams) ([]domain.LedgerEntry, *string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	from := int64(1)
	if params.From != nil {
		from = *params.From
	}

	var matched []domain.LedgerEntry
	for _, e := range r.store.entries {
		if e.AccountID == accountID && e.Sequence >= from {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence < matched[j].Sequence })

	var nextToken *string
	if len(matched) > params.Limit {
		matched = matched[:params.Limit]
		token := pagination.EncodeSequenceToken(matched[len(matched)-1].Sequence + 1)
		nextToken = &token
	}
	return matched, nextToken, nil
}

func (r *memOperationRepository) SumEntryDeltas(ctx context.Context, accountID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var sum int64
	for _, e := range r.store.entries {
		if e.AccountID == accountID {
			sum += e.Delta.Amount
		}
	}
	return sum, nil
}
