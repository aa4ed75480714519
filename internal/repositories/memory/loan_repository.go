package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
)

type memLoanRepository struct {
	store *store
}

var _ portsrepo.LoanRepositoryFacade = (*memLoanRepository)(nil)

func (r *memLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.loans[loan.LoanID]; exists {
		return fmt.Errorf("%w: loan %s already exists", apperrors.ErrDuplicate, loan.LoanID)
	}
	if _, exists := r.store.byDisbursement[loan.DisbursementOperationID]; exists {
		return fmt.Errorf("%w: a loan for disbursement operation %s already exists", apperrors.ErrDuplicate, loan.DisbursementOperationID)
	}
	r.store.loans[loan.LoanID] = cloneLoan(loan)
	r.store.byDisbursement[loan.DisbursementOperationID] = loan.LoanID
	return nil
}

func (r *memLoanRepository) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.loans[loan.LoanID]; !ok {
		return fmt.Errorf("%w: loan %s", apperrors.ErrNotFound, loan.LoanID)
	}
	r.store.loans[loan.LoanID] = cloneLoan(loan)
	return nil
}

func (r *memLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	loan, ok := r.store.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", apperrors.ErrNotFound, loanID)
	}
	result := cloneLoan(loan)
	return &result, nil
}

func (r *memLoanRepository) FindLoanByDisbursementOperationID(ctx context.Context, operationID string) (*domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	loanID, ok := r.store.byDisbursement[operationID]
	if !ok {
		return nil, fmt.Errorf("%w: loan for disbursement operation %s", apperrors.ErrNotFound, operationID)
	}
	result := cloneLoan(r.store.loans[loanID])
	return &result, nil
}

func (r *memLoanRepository) ListActiveLoans(ctx context.Context) ([]domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Loan
	for _, loan := range r.store.loans {
		if loan.Status == domain.LoanActive {
			result = append(result, cloneLoan(loan))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *memLoanRepository) MarkInstallmentsOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var changed int64
	for id, loan := range r.store.loans {
		updated := false
		for i := range loan.Installments {
			inst := &loan.Installments[i]
			if inst.Status == domain.InstallmentPending && inst.DueDate.Before(asOf) {
				inst.Status = domain.InstallmentOverdue
				changed++
				updated = true
			}
		}
		if updated {
			r.store.loans[id] = loan
		}
	}
	return changed, nil
}
