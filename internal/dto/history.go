package dto

import (
	"time"

	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// HistoryParams bounds an account history query.
type HistoryParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// EntryResponse defines the API representation of one ledger entry.
type EntryResponse struct {
	EntryID          string    `json:"entryID"`
	AccountID        string    `json:"accountID"`
	Sequence         int64     `json:"sequence"`
	Delta            int64     `json:"delta"` // Signed minor units
	ResultingBalance int64     `json:"resultingBalance"`
	CurrencyCode     string    `json:"currencyCode"`
	OperationID      string    `json:"operationID"`
	CreatedAt        time.Time `json:"createdAt"`
}

// HistoryResponse is one page of an account's entry history.
type HistoryResponse struct {
	AccountID string          `json:"accountID"`
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ToEntryResponse maps a ledger entry to its API representation.
func ToEntryResponse(e domain.LedgerEntry) EntryResponse {
	return EntryResponse{
		EntryID:          e.EntryID,
		AccountID:        e.AccountID,
		Sequence:         e.Sequence,
		Delta:            e.Delta.Amount,
		ResultingBalance: e.ResultingBalance.Amount,
		CurrencyCode:     e.Delta.CurrencyCode,
		OperationID:      e.OperationID,
		CreatedAt:        e.CreatedAt,
	}
}
