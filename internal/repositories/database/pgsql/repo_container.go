package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
)

// NewRepositoryProvider wires the pgsql repositories over one shared pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:   newPgxAccountRepository(dbPool),
		OperationRepo: newPgxOperationRepository(dbPool),
		LoanRepo:      newPgxLoanRepository(dbPool),
	}
}
