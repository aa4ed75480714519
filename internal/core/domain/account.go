package domain

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	// AccountActive admits all money movement.
	AccountActive AccountStatus = "ACTIVE"
	// AccountSuspended blocks withdrawals and transfers out; deposits still land.
	AccountSuspended AccountStatus = "SUSPENDED"
	// AccountClosed blocks all money movement. Requires a zero balance to enter
	// and is never left again.
	AccountClosed AccountStatus = "CLOSED"
)

// Account is one ledger account. Balance is a derived projection of the entry
// history; only the transfer coordinator mutates it, and only the account
// service mutates Status.
type Account struct {
	AccountID    string        `json:"accountID"` // Primary key (UUID)
	OwnerID      string        `json:"ownerID"`   // External customer reference
	Name         string        `json:"name"`
	CurrencyCode string        `json:"currencyCode"`
	Status       AccountStatus `json:"status"`
	Balance      Money         `json:"balance"`
	// Version increments on every mutation; used for optimistic-concurrency
	// detection against writers outside this process.
	Version int64 `json:"version"`
	// LastEntrySeq is the per-account monotonic sequence of the newest entry.
	LastEntrySeq int64 `json:"lastEntrySeq"`
	// Frozen halts all mutation after a failed reconciliation until an operator
	// clears it outside this engine.
	Frozen bool `json:"frozen"`
	AuditFields
}

// CanDebit reports whether money may leave this account.
func (a Account) CanDebit() bool {
	return a.Status == AccountActive && !a.Frozen
}

// CanCredit reports whether money may land on this account.
func (a Account) CanCredit() bool {
	return a.Status != AccountClosed && !a.Frozen
}
