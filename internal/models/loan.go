package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus mirrors the lifecycle column on the loans table.
type LoanStatus string

const (
	LoanActive    LoanStatus = "ACTIVE"
	LoanPaidOff   LoanStatus = "PAID_OFF"
	LoanDefaulted LoanStatus = "DEFAULTED"
)

// InstallmentStatus mirrors the status column on loan_installments.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// Loan is the persisted shape of a loan. All amounts are minor units in the
// loan's currency.
type Loan struct {
	LoanID                  string          `json:"loanID"` // Primary key (UUID)
	BorrowerAccountID       string          `json:"borrowerAccountID"`
	Principal               int64           `json:"principal"`
	CurrencyCode            string          `json:"currencyCode"`
	PolicyKind              string          `json:"policyKind"` // FLAT or SIMPLE
	Rate                    decimal.Decimal `json:"rate"`
	RoundingTolerance       int64           `json:"roundingTolerance"`
	TotalDue                int64           `json:"totalDue"`
	TotalRepaid             int64           `json:"totalRepaid"`
	Outstanding             int64           `json:"outstanding"`
	Status                  LoanStatus      `json:"status"`
	DisbursementOperationID string          `json:"disbursementOperationID"`
	AuditFields
}

// Installment is the persisted shape of one scheduled repayment.
type Installment struct {
	LoanID    string            `json:"loanID"`
	Number    int               `json:"number"` // 1-based position in the schedule
	DueAmount int64             `json:"dueAmount"`
	DueDate   time.Time         `json:"dueDate"`
	Status    InstallmentStatus `json:"status"`
	PaidAt    *time.Time        `json:"paidAt,omitempty"`
}
