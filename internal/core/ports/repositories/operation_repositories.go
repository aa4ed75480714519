package repositories

import (
	"context"

	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// ListEntriesParams bounds a history query. From restarts the scan from a
// previous page's position.
type ListEntriesParams struct {
	From  *int64 // Inclusive lower bound on entry sequence
	Limit int
}

// OperationWriter is the single commit point for money movement.
type OperationWriter interface {
	// SaveOperation atomically persists the operation, appends its ledger
	// entries and applies the updated account snapshots (balance, version,
	// last entry sequence). All of it commits together or none of it does.
	//
	// Each account in updatedAccounts carries the Version it had when the
	// caller read it, plus one; the store must reject the commit with
	// apperrors.ErrStaleVersion if the stored version does not precede it, and
	// with apperrors.ErrDuplicate if the idempotency key already has a
	// committed operation.
	//
	// The returned operation carries the audit-log sequence number assigned at
	// commit.
	SaveOperation(ctx context.Context, op domain.Operation, entries []domain.LedgerEntry, updatedAccounts map[string]domain.Account) (*domain.Operation, error)
}

// OperationReader serves the audit log.
type OperationReader interface {
	// FindOperationByID retrieves one operation with its entry ids.
	FindOperationByID(ctx context.Context, operationID string) (*domain.Operation, error)

	// FindOperationByIdempotencyKey retrieves the committed operation recorded
	// under the given idempotency key, or apperrors.ErrNotFound.
	FindOperationByIdempotencyKey(ctx context.Context, key string) (*domain.Operation, error)

	// FindEntriesByOperationID retrieves the entries one operation produced.
	FindEntriesByOperationID(ctx context.Context, operationID string) ([]domain.LedgerEntry, error)

	// ListEntriesByAccount retrieves a page of an account's entry history in
	// ascending sequence order, plus a token to resume from.
	ListEntriesByAccount(ctx context.Context, accountID string, params ListEntriesParams) ([]domain.LedgerEntry, *string, error)

	// SumEntryDeltas recomputes the sum of all entry deltas for an account,
	// reading a consistent snapshot. Used by reconciliation.
	SumEntryDeltas(ctx context.Context, accountID string) (int64, error)
}

// OperationRepositoryFacade combines the audit log read and write interfaces.
type OperationRepositoryFacade interface {
	OperationReader
	OperationWriter
}
