package services

import (
	"context"

	"github.com/sulimanbank/bankcore/internal/dto"
)

// LedgerSvcFacade serves integrity checks and account history reads.
type LedgerSvcFacade interface {
	// Reconcile recomputes the balance from the full entry sequence. On
	// mismatch it freezes the account and returns apperrors.ErrLedgerCorruption.
	Reconcile(ctx context.Context, accountID string) error

	// GetHistory returns one page of an account's ledger entries in sequence
	// order, restartable via the returned token.
	GetHistory(ctx context.Context, accountID string, params dto.HistoryParams) (*dto.HistoryResponse, error)
}
