package repositories

// RepositoryProvider bundles the repository facades a service container needs.
// Both the pgsql and the in-memory adapters produce one of these.
type RepositoryProvider struct {
	AccountRepo   AccountRepositoryFacade
	OperationRepo OperationRepositoryFacade
	LoanRepo      LoanRepositoryFacade
}
