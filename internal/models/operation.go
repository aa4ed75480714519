package models

import "time"

// OperationStatus indicates the recorded outcome of an operation.
type OperationStatus string

const (
	OpCommitted OperationStatus = "COMMITTED"
	OpFailed    OperationStatus = "FAILED"
)

// Operation is the persisted shape of one audit-log record. SequenceNo is
// assigned by the database at commit and is strictly increasing.
type Operation struct {
	OperationID    string          `json:"operationID"` // Primary key (UUID)
	Kind           string          `json:"kind"`
	IdempotencyKey string          `json:"idempotencyKey"` // Unique among committed operations
	Status         OperationStatus `json:"status"`
	FailureReason  string          `json:"failureReason"`
	SequenceNo     int64           `json:"sequenceNo"`
	CreatedAt      time.Time       `json:"createdAt"`
	CreatedBy      string          `json:"createdBy"`
}

// LedgerEntry is the persisted shape of one signed balance movement.
type LedgerEntry struct {
	EntryID          string    `json:"entryID"` // Primary key (UUID)
	AccountID        string    `json:"accountID"`
	Sequence         int64     `json:"sequence"` // Per-account, monotonic from 1
	Delta            int64     `json:"delta"`    // Signed minor units
	ResultingBalance int64     `json:"resultingBalance"`
	CurrencyCode     string    `json:"currencyCode"`
	OperationID      string    `json:"operationID"`
	CreatedAt        time.Time `json:"createdAt"`
}
