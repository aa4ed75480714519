package services

import (
	"github.com/redis/go-redis/v9"

	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/platform/config"
)

// NewServiceContainer wires the service facades over a repository provider.
// All services share one AccountLocker so exclusive access holds engine-wide,
// not per service. The redis client is optional and may be nil.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, redisClient *redis.Client) *portssvc.ServiceContainer {
	locker := NewAccountLocker()

	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(repos.AccountRepo, locker, cfg.LockWaitTimeout)

	container.Transfer = NewTransferService(
		repos.AccountRepo,
		repos.OperationRepo,
		locker,
		WithLockWait(cfg.LockWaitTimeout),
		WithFeePolicy(cfg.TransferFeeRate, cfg.FeeAccountID),
	)

	container.Ledger = NewLedgerService(repos.AccountRepo, repos.OperationRepo, locker, cfg.LockWaitTimeout)

	loanOpts := []LoanOption{
		WithLoanAccounts(cfg.LoanFundingAccountID, cfg.LoanSettlementAccountID),
		WithMaxPrincipal(cfg.MaxLoanPrincipal),
		WithInstallmentInterval(cfg.InstallmentInterval),
		WithMissedThreshold(cfg.DefaultMissedThreshold),
	}
	if redisClient != nil {
		loanOpts = append(loanOpts, WithRedisCache(redisClient))
	}
	container.Loan = NewLoanService(repos.LoanRepo, repos.AccountRepo, container.Transfer, locker, cfg.LockWaitTimeout, loanOpts...)

	return container
}
