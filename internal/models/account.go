package models

// AccountStatus mirrors the lifecycle column on the accounts table.
type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

// Account is the persisted shape of a ledger account. Balance is stored in
// minor units and kept consistent with the entry log by the operation commit.
type Account struct {
	AccountID    string        `json:"accountID"` // Primary key (UUID)
	OwnerID      string        `json:"ownerID"`
	Name         string        `json:"name"`
	CurrencyCode string        `json:"currencyCode"`
	Status       AccountStatus `json:"status"`
	Balance      int64         `json:"balance"`      // Minor units
	Version      int64         `json:"version"`      // Optimistic concurrency token
	LastEntrySeq int64         `json:"lastEntrySeq"` // Highest entry sequence issued
	Frozen       bool          `json:"frozen"`       // Set by reconciliation on corruption
	AuditFields
}
