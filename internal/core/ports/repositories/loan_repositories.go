package repositories

import (
	"context"
	"time"

	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// LoanReader defines read operations for loan data.
type LoanReader interface {
	// FindLoanByID retrieves a loan with its full installment schedule.
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// FindLoanByDisbursementOperationID retrieves the loan created by the given
	// disbursement operation, or apperrors.ErrNotFound. Used for idempotent
	// origination replays.
	FindLoanByDisbursementOperationID(ctx context.Context, operationID string) (*domain.Loan, error)

	// ListActiveLoans retrieves all loans in ACTIVE status, schedules included.
	ListActiveLoans(ctx context.Context) ([]domain.Loan, error)
}

// LoanWriter defines write operations for loan data.
type LoanWriter interface {
	// SaveLoan persists a new loan together with its installment schedule.
	SaveLoan(ctx context.Context, loan domain.Loan) error

	// UpdateLoan persists repayment progress: outstanding, status and changed
	// installment rows, atomically.
	UpdateLoan(ctx context.Context, loan domain.Loan) error

	// MarkInstallmentsOverdue flips pending installments whose due date is
	// before asOf to OVERDUE, returning how many rows changed.
	MarkInstallmentsOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// LoanRepositoryFacade combines all loan-related repository interfaces.
type LoanRepositoryFacade interface {
	LoanReader
	LoanWriter
}
