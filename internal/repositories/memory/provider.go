// Package memory provides an in-memory RepositoryProvider with the same
// semantics as the pgsql adapter: atomic operation commits, version checks and
// idempotency-key uniqueness. It backs tests and local runs without a
// database.
package memory

import (
	"sync"

	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
)

// store is the shared state behind all three repositories. One mutex guards
// everything, which makes every SaveOperation commit atomic by construction.
type store struct {
	mu sync.RWMutex

	accounts map[string]domain.Account

	operations     map[string]domain.Operation
	byIdempotency  map[string]string // idempotency key -> operation id
	entries        []domain.LedgerEntry
	nextSequenceNo int64

	loans          map[string]domain.Loan
	byDisbursement map[string]string // disbursement operation id -> loan id
}

// NewRepositoryProvider creates a fresh in-memory provider.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	s := &store{
		accounts:       make(map[string]domain.Account),
		operations:     make(map[string]domain.Operation),
		byIdempotency:  make(map[string]string),
		nextSequenceNo: 1,
		loans:          make(map[string]domain.Loan),
		byDisbursement: make(map[string]string),
	}
	return portsrepo.RepositoryProvider{
		AccountRepo:   &memAccountRepository{store: s},
		OperationRepo: &memOperationRepository{store: s},
		LoanRepo:      &memLoanRepository{store: s},
	}
}

func cloneLoan(l domain.Loan) domain.Loan {
	out := l
	out.RepaymentOperationIDs = make([]string, len(l.RepaymentOperationIDs))
	copy(out.RepaymentOperationIDs, l.RepaymentOperationIDs)
	out.Installments = make([]domain.Installment, len(l.Installments))
	copy(out.Installments, l.Installments)
	for i := range out.Installments {
		if l.Installments[i].PaidAt != nil {
			paidAt := *l.Installments[i].PaidAt
			out.Installments[i].PaidAt = &paidAt
		}
	}
	return out
}

func cloneOperation(op domain.Operation) domain.Operation {
	out := op
	out.EntryIDs = make([]string, len(op.EntryIDs))
	copy(out.EntryIDs, op.EntryIDs)
	return out
}
