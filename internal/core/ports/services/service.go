package services

// ServiceContainer bundles the service facades handed to the transport layer.
type ServiceContainer struct {
	Account  AccountSvcFacade
	Transfer TransferSvcFacade
	Ledger   LedgerSvcFacade
	Loan     LoanSvcFacade
}
