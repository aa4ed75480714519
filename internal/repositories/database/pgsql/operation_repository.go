package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	"github.com/sulimanbank/bankcore/internal/models"
	"github.com/sulimanbank/bankcore/internal/utils/pagination"
)

type PgxOperationRepository struct {
	pool *pgxpool.Pool
}

// newPgxOperationRepository creates a new repository for the audit log.
func newPgxOperationRepository(pool *pgxpool.Pool) portsrepo.OperationRepositoryFacade {
	return &PgxOperationRepository{pool: pool}
}

var _ portsrepo.OperationRepositoryFacade = (*PgxOperationRepository)(nil)

func toDomainEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:          m.EntryID,
		AccountID:        m.AccountID,
		Sequence:         m.Sequence,
		Delta:            domain.NewMoney(m.Delta, m.CurrencyCode),
		ResultingBalance: domain.NewMoney(m.ResultingBalance, m.CurrencyCode),
		OperationID:      m.OperationID,
		CreatedAt:        m.CreatedAt,
	}
}

const entryColumns = `entry_id, account_id, sequence, delta, resulting_balance, currency_code, operation_id, created_at`

func scanEntry(row pgx.Row) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID,
		&m.AccountID,
		&m.Sequence,
		&m.Delta,
		&m.ResultingBalance,
		&m.CurrencyCode,
		&m.OperationID,
		&m.CreatedAt,
	)
	return m, err
}

// SaveOperation atomically persists the operation record, its ledger entries
// and the updated account snapshots. Row locks are taken in ascending account
// id order, matching the in-process lock order. The version check rejects
// writers that raced us from another process.
func (r *PgxOperationRepository) SaveOperation(ctx context.Context, op domain.Operation, entries []domain.LedgerEntry, updatedAccounts map[string]domain.Account) (*domain.Operation, error) {
	accountIDs := make([]string, 0, len(updatedAccounts))
	for id := range updatedAccounts {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	var sequenceNo int64
	err := runInTx(ctx, r.pool, func(tx pgx.Tx) error {
		locked, err := findAccountsByIDsForUpdate(ctx, tx, accountIDs)
		if err != nil {
			return err
		}

		for _, id := range accountIDs {
			next := updatedAccounts[id]
			current := locked[id]
			if current.Version != next.Version-1 {
				return fmt.Errorf("%w: account %s stored version %d, expected %d", apperrors.ErrStaleVersion, id, current.Version, next.Version-1)
			}
		}

		updateQuery := `
			UPDATE accounts
			SET balance = $2, version = $3, last_entry_seq = $4, last_updated_at = $5, last_updated_by = $6
			WHERE account_id = $1;
		`
		for _, id := range accountIDs {
			next := updatedAccounts[id]
			if _, err := tx.Exec(ctx, updateQuery, id, next.Balance.Amount, next.Version, next.LastEntrySeq, next.LastUpdatedAt, next.LastUpdatedBy); err != nil {
				return fmt.Errorf("failed to update account %s: %w", id, err)
			}
		}

		opQuery := `
			INSERT INTO operations (operation_id, kind, idempotency_key, status, failure_reason, created_at, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING sequence_no;
		`
		err = tx.QueryRow(ctx, opQuery,
			op.OperationID,
			string(op.Kind),
			op.IdempotencyKey,
			string(op.Status),
			op.FailureReason,
			op.CreatedAt,
			op.CreatedBy,
		).Scan(&sequenceNo)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: idempotency key %s", apperrors.ErrDuplicate, op.IdempotencyKey)
			}
			return fmt.Errorf("failed to insert operation %s: %w", op.OperationID, err)
		}

		batch := &pgx.Batch{}
		entryQuery := `
			INSERT INTO ledger_entries (` + entryColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
		`
		for _, e := range entries {
			batch.Queue(entryQuery,
				e.EntryID,
				e.AccountID,
				e.Sequence,
				e.Delta.Amount,
				e.ResultingBalance.Amount,
				e.Delta.CurrencyCode,
				e.OperationID,
				e.CreatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert entries for operation %s: %w", op.OperationID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	committed := op
	committed.SequenceNo = sequenceNo
	return &committed, nil
}

const operationColumns = `operation_id, kind, idempotency_key, status, failure_reason, sequence_no, created_at, created_by`

func (r *PgxOperationRepository) findOperation(ctx context.Context, where string, arg any) (*domain.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE ` + where + ` = $1;`
	var m models.Operation
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&m.OperationID,
		&m.Kind,
		&m.IdempotencyKey,
		&m.Status,
		&m.FailureReason,
		&m.SequenceNo,
		&m.CreatedAt,
		&m.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: operation (%s=%v)", apperrors.ErrNotFound, where, arg)
		}
		return nil, fmt.Errorf("failed to find operation (%s=%v): %w", where, arg, err)
	}

	op := &domain.Operation{
		OperationID:    m.OperationID,
		Kind:           domain.OperationKind(m.Kind),
		IdempotencyKey: m.IdempotencyKey,
		Status:         domain.OperationStatus(m.Status),
		FailureReason:  m.FailureReason,
		SequenceNo:     m.SequenceNo,
		CreatedAt:      m.CreatedAt,
		CreatedBy:      m.CreatedBy,
	}

	idQuery := `SELECT entry_id FROM ledger_entries WHERE operation_id = $1 ORDER BY account_id, sequence;`
	rows, err := r.pool.Query(ctx, idQuery, op.OperationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry ids for operation %s: %w", op.OperationID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entry id: %w", err)
		}
		op.EntryIDs = append(op.EntryIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entry ids: %w", err)
	}
	return op, nil
}

// FindOperationByID retrieves one operation with its entry ids.
func (r *PgxOperationRepository) FindOperationByID(ctx context.Context, operationID string) (*domain.Operation, error) {
	return r.findOperation(ctx, "operation_id", operationID)
}

// FindOperationByIdempotencyKey retrieves the committed operation recorded
// under the given idempotency key.
func (r *PgxOperationRepository) FindOperationByIdempotencyKey(ctx context.Context, key string) (*domain.Operation, error) {
	return r.findOperation(ctx, "idempotency_key", key)
}

// FindEntriesByOperationID retrieves the entries one operation produced.
func (r *PgxOperationRepository) FindEntriesByOperationID(ctx context.Context, operationID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE operation_id = $1 ORDER BY account_id, sequence;`
	rows, err := r.pool.Query(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries of operation %s: %w", operationID, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, toDomainEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entry rows: %w", err)
	}
	return entries, nil
}

// ListEntriesByAccount retrieves a page of an account's entry history in
// ascending sequence order.
func (r *PgxOperationRepository) ListEntriesByAccount(ctx context.Context, accountID string, params portsrepo.ListEntriesParams) ([]domain.LedgerEntry, *string, error) {
	from := int64(1)
	if params.From != nil {
		from = *params.From
	}

	// Fetch one extra row to learn whether another page exists.
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1 AND sequence >= $2
		ORDER BY sequence
		LIMIT $3;
	`
	rows, err := r.pool.Query(ctx, query, accountID, from, params.Limit+1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query entries of account %s: %w", accountID, err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, params.Limit)
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, toDomainEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate entry rows: %w", err)
	}

	var nextToken *string
	if len(entries) > params.Limit {
		entries = entries[:params.Limit]
		token := pagination.EncodeSequenceToken(entries[len(entries)-1].Sequence + 1)
		nextToken = &token
	}
	return entries, nextToken, nil
}

// SumEntryDeltas recomputes the sum of all entry deltas for an account.
func (r *PgxOperationRepository) SumEntryDeltas(ctx context.Context, accountID string) (int64, error) {
	query := `SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = $1;`
	var sum int64
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum entries of account %s: %w", accountID, err)
	}
	return sum, nil
}
