package services

import (
	"context"
	"time"

	"github.com/sulimanbank/bankcore/internal/core/domain"
	"github.com/sulimanbank/bankcore/internal/dto"
)

// LoanSvcFacade is the loan book. It never mutates balances directly; all
// money movement goes through the transfer coordinator.
type LoanSvcFacade interface {
	// OriginateLoan disburses the principal to the borrower and creates the
	// loan with its deterministic installment schedule.
	OriginateLoan(ctx context.Context, req dto.OriginateLoanRequest, callerID string) (*domain.Loan, error)

	// RepayLoan applies a repayment against the earliest unpaid installments.
	RepayLoan(ctx context.Context, req dto.RepayLoanRequest, callerID string) (*domain.Loan, error)

	// GetLoanByID retrieves a loan with its schedule.
	GetLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GetOutstanding returns the exact outstanding balance in minor units.
	GetOutstanding(ctx context.Context, loanID string) (domain.Money, error)

	// MarkOverdueAndDefaults runs one delinquency sweep: flips due pending
	// installments to overdue and defaults loans that crossed the consecutive
	// missed-installment threshold.
	MarkOverdueAndDefaults(ctx context.Context, asOf time.Time) (dto.DelinquencySweepResult, error)
}
