package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive    LoanStatus = "ACTIVE"
	LoanPaidOff   LoanStatus = "PAID_OFF"
	LoanDefaulted LoanStatus = "DEFAULTED"
)

// PolicyKind selects how total interest is derived from the principal.
type PolicyKind string

const (
	// PolicyFlat charges interest = principal x rate, once.
	PolicyFlat PolicyKind = "FLAT"
	// PolicySimple charges interest = principal x rate x term, rate being per
	// installment period.
	PolicySimple PolicyKind = "SIMPLE"
)

// InterestPolicy parameterizes interest and repayment tolerance for a loan.
type InterestPolicy struct {
	Kind PolicyKind      `json:"kind"`
	Rate decimal.Decimal `json:"rate"` // E.g. 0.10 for 10%
	// RoundingTolerance is the number of minor units a repayment may exceed the
	// outstanding balance by before it is rejected as an over-repayment.
	RoundingTolerance int64 `json:"roundingTolerance"`
}

// InstallmentStatus is the state of one scheduled repayment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// Installment is one scheduled repayment amount within a loan's schedule.
type Installment struct {
	LoanID    string            `json:"loanID"`
	Number    int               `json:"number"` // 1-based position in the schedule
	DueAmount Money             `json:"dueAmount"`
	DueDate   time.Time         `json:"dueDate"`
	Status    InstallmentStatus `json:"status"`
	PaidAt    *time.Time        `json:"paidAt,omitempty"`
}

// Loan tracks principal, schedule and repayments for one borrower account.
// The loan book never mutates balances directly; disbursement and repayment
// are operations routed through the transfer coordinator.
type Loan struct {
	LoanID            string         `json:"loanID"` // Primary key (UUID)
	BorrowerAccountID string         `json:"borrowerAccountID"`
	Principal         Money          `json:"principal"`
	Policy            InterestPolicy `json:"policy"`
	// TotalDue = principal + total interest; equals the exact sum of all
	// installment due amounts.
	TotalDue Money `json:"totalDue"`
	// TotalRepaid accumulates committed repayments.
	TotalRepaid Money `json:"totalRepaid"`
	// Outstanding = TotalDue - TotalRepaid, never below zero.
	Outstanding Money      `json:"outstanding"`
	Status      LoanStatus `json:"status"`
	// DisbursementOperationID links to the operation that credited the
	// borrower; used to make origination idempotent.
	DisbursementOperationID string `json:"disbursementOperationID"`
	// RepaymentOperationIDs records every repayment operation whose amount is
	// reflected in TotalRepaid. A retried repayment whose earlier write-back
	// was lost is re-applied exactly once by checking membership here.
	RepaymentOperationIDs []string      `json:"repaymentOperationIDs,omitempty"`
	Installments          []Installment `json:"installments,omitempty"`
	AuditFields
}

// HasRepaymentOperation reports whether the given repayment operation is
// already reflected in the loan's accounting.
func (l *Loan) HasRepaymentOperation(operationID string) bool {
	for _, id := range l.RepaymentOperationIDs {
		if id == operationID {
			return true
		}
	}
	return false
}
