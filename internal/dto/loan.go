package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// OriginateLoanRequest defines the payload for issuing a new loan.
type OriginateLoanRequest struct {
	BorrowerAccountID string          `json:"borrowerAccountID" binding:"required"`
	Principal         int64           `json:"principal" binding:"required,gt=0"` // Minor units
	CurrencyCode      string          `json:"currencyCode" binding:"required,currency_code"`
	PolicyKind        string          `json:"policyKind" binding:"required,oneof=FLAT SIMPLE"`
	Rate              decimal.Decimal `json:"rate"`
	RoundingTolerance int64           `json:"roundingTolerance" binding:"gte=0"`
	TermInstallments  int             `json:"termInstallments" binding:"required,gt=0"`
	IdempotencyKey    string          `json:"idempotencyKey" binding:"required,max=128"`
}

// RepayLoanRequest defines the payload for one loan repayment.
type RepayLoanRequest struct {
	LoanID         string `json:"-"` // Taken from the URL path
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	CurrencyCode   string `json:"currencyCode" binding:"required,currency_code"`
	IdempotencyKey string `json:"idempotencyKey" binding:"required,max=128"`
}

// InstallmentResponse defines the API representation of one installment.
type InstallmentResponse struct {
	Number    int        `json:"number"`
	DueAmount int64      `json:"dueAmount"`
	DueDate   time.Time  `json:"dueDate"`
	Status    string     `json:"status"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

// LoanResponse defines the API representation of a loan.
type LoanResponse struct {
	LoanID            string                `json:"loanID"`
	BorrowerAccountID string                `json:"borrowerAccountID"`
	Principal         int64                 `json:"principal"`
	CurrencyCode      string                `json:"currencyCode"`
	PolicyKind        string                `json:"policyKind"`
	Rate              decimal.Decimal       `json:"rate"`
	TotalDue          int64                 `json:"totalDue"`
	TotalRepaid       int64                 `json:"totalRepaid"`
	Outstanding       int64                 `json:"outstanding"`
	Status            string                `json:"status"`
	Schedule          []InstallmentResponse `json:"schedule,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

// DelinquencySweepResult reports one overdue/default detection pass.
type DelinquencySweepResult struct {
	InstallmentsMarkedOverdue int64 `json:"installmentsMarkedOverdue"`
	LoansDefaulted            int   `json:"loansDefaulted"`
}

// ToLoanResponse maps a domain loan to its API representation.
func ToLoanResponse(l *domain.Loan) LoanResponse {
	schedule := make([]InstallmentResponse, 0, len(l.Installments))
	for _, inst := range l.Installments {
		schedule = append(schedule, InstallmentResponse{
			Number:    inst.Number,
			DueAmount: inst.DueAmount.Amount,
			DueDate:   inst.DueDate,
			Status:    string(inst.Status),
			PaidAt:    inst.PaidAt,
		})
	}
	return LoanResponse{
		LoanID:            l.LoanID,
		BorrowerAccountID: l.BorrowerAccountID,
		Principal:         l.Principal.Amount,
		CurrencyCode:      l.Principal.CurrencyCode,
		PolicyKind:        string(l.Policy.Kind),
		Rate:              l.Policy.Rate,
		TotalDue:          l.TotalDue.Amount,
		TotalRepaid:       l.TotalRepaid.Amount,
		Outstanding:       l.Outstanding.Amount,
		Status:            string(l.Status),
		Schedule:          schedule,
		CreatedAt:         l.CreatedAt,
	}
}
