package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/core/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/repositories/memory"
)

const testCaller = "tester"

type TransferServiceTestSuite struct {
	suite.Suite
	repos   portsrepo.RepositoryProvider
	locker  *services.AccountLocker
	service portssvc.TransferSvcFacade
}

func (s *TransferServiceTestSuite) SetupTest() {
	s.repos = memory.NewRepositoryProvider()
	s.locker = services.NewAccountLocker()
	s.service = services.NewTransferService(s.repos.AccountRepo, s.repos.OperationRepo, s.locker)
}

// newAccount seeds an account directly in the repository.
func (s *TransferServiceTestSuite) newAccount(currency string, status domain.AccountStatus) string {
	id := uuid.NewString()
	now := time.Now().UTC()
	err := s.repos.AccountRepo.SaveAccount(context.Background(), domain.Account{
		AccountID:    id,
		OwnerID:      uuid.NewString(),
		Name:         "test account",
		CurrencyCode: currency,
		Status:       status,
		Balance:      domain.Zero(currency),
		Version:      1,
		AuditFields:  domain.AuditFields{CreatedAt: now, CreatedBy: testCaller, LastUpdatedAt: now, LastUpdatedBy: testCaller},
	})
	s.Require().NoError(err)
	return id
}

func (s *TransferServiceTestSuite) deposit(accountID string, amount int64, currency string) *domain.OperationResult {
	result, err := s.service.Deposit(context.Background(), dto.DepositRequest{
		AccountID:      accountID,
		Amount:         amount,
		CurrencyCode:   currency,
		IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().NoError(err)
	return result
}

func (s *TransferServiceTestSuite) TestWithdraw_Success() {
	acc := s.newAccount("USD", domain.AccountActive)
	s.deposit(acc, 10000, "USD")

	result, err := s.service.Withdraw(context.Background(), dto.WithdrawRequest{
		AccountID:      acc,
		Amount:         3000,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)

	s.Require().NoError(err)
	s.Equal(int64(7000), result.Balances[acc].Amount)
	s.False(result.Replayed)

	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(int64(7000), stored.Balance.Amount)
}

func (s *TransferServiceTestSuite) TestWithdraw_InsufficientFunds() {
	acc := s.newAccount("USD", domain.AccountActive)
	s.deposit(acc, 10000, "USD")

	_, err := s.service.Withdraw(context.Background(), dto.WithdrawRequest{
		AccountID:      acc,
		Amount:         10001,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)

	s.Require().ErrorIs(err, apperrors.ErrInsufficientFunds)

	// No partial effect: balance and history untouched.
	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(int64(10000), stored.Balance.Amount)

	sum, err := s.repos.OperationRepo.SumEntryDeltas(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(int64(10000), sum)
}

func (s *TransferServiceTestSuite) TestDeposit_IdempotentReplay() {
	acc := s.newAccount("USD", domain.AccountActive)
	key := uuid.NewString()
	req := dto.DepositRequest{AccountID: acc, Amount: 2500, CurrencyCode: "USD", IdempotencyKey: key}

	first, err := s.service.Deposit(context.Background(), req, testCaller)
	s.Require().NoError(err)
	s.False(first.Replayed)

	second, err := s.service.Deposit(context.Background(), req, testCaller)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Operation.OperationID, second.Operation.OperationID)
	s.Equal(int64(2500), second.Balances[acc].Amount)

	// The deposit landed exactly once.
	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(int64(2500), stored.Balance.Amount)
}

func (s *TransferServiceTestSuite) TestTransfer_MovesExactAmount() {
	from := s.newAccount("USD", domain.AccountActive)
	to := s.newAccount("USD", domain.AccountActive)
	s.deposit(from, 5000, "USD")

	result, err := s.service.Transfer(context.Background(), dto.TransferRequest{
		FromAccountID:  from,
		ToAccountID:    to,
		Amount:         1200,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)

	s.Require().NoError(err)
	s.Equal(int64(3800), result.Balances[from].Amount)
	s.Equal(int64(1200), result.Balances[to].Amount)
	s.Equal(domain.OpTransfer, result.Operation.Kind)
	s.Len(result.Operation.EntryIDs, 2)
}

func (s *TransferServiceTestSuite) TestTransfer_SameAccountRejected() {
	acc := s.newAccount("USD", domain.AccountActive)
	_, err := s.service.Transfer(context.Background(), dto.TransferRequest{
		FromAccountID:  acc,
		ToAccountID:    acc,
		Amount:         100,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransferServiceTestSuite) TestTransfer_CurrencyMismatch() {
	from := s.newAccount("USD", domain.AccountActive)
	to := s.newAccount("EUR", domain.AccountActive)
	s.deposit(from, 5000, "USD")

	_, err := s.service.Transfer(context.Background(), dto.TransferRequest{
		FromAccountID:  from,
		ToAccountID:    to,
		Amount:         100,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrCurrencyMismatch)
}

func (s *TransferServiceTestSuite) TestSuspendedAccount_DepositsLandWithdrawalsBlocked() {
	acc := s.newAccount("USD", domain.AccountActive)
	s.deposit(acc, 4000, "USD")

	now := time.Now().UTC()
	s.Require().NoError(s.repos.AccountRepo.UpdateAccountStatus(context.Background(), acc, domain.AccountSuspended, testCaller, now))

	// Deposits still land on a suspended account.
	result, err := s.service.Deposit(context.Background(), dto.DepositRequest{
		AccountID:      acc,
		Amount:         500,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().NoError(err)
	s.Equal(int64(4500), result.Balances[acc].Amount)

	// Withdrawals are blocked.
	_, err = s.service.Withdraw(context.Background(), dto.WithdrawRequest{
		AccountID:      acc,
		Amount:         100,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrAccountNotActive)
}

func (s *TransferServiceTestSuite) TestClosedAccount_RejectsAllMovement() {
	acc := s.newAccount("USD", domain.AccountClosed)

	_, err := s.service.Deposit(context.Background(), dto.DepositRequest{
		AccountID:      acc,
		Amount:         100,
		CurrencyCode:   "USD",
		IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrAccountClosed)
}

func (s *TransferServiceTestSuite) TestWithdrawalFee_RoutedToFeeAccount() {
	feeAcc := s.newAccount("USD", domain.AccountActive)
	svc := services.NewTransferService(s.repos.AccountRepo, s.repos.OperationRepo, s.locker,
		services.WithFeePolicy(decimal.NewFromFloat(0.01), feeAcc))

	acc := s.newAccount("USD", domain.AccountActive)
	_, err := svc.Deposit(context.Background(), dto.DepositRequest{
		AccountID: acc, Amount: 10000, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().NoError(err)

	result, err := svc.Withdraw(context.Background(), dto.WithdrawRequest{
		AccountID: acc, Amount: 1000, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().NoError(err)
	s.Equal(int64(9000), result.Balances[acc].Amount)
	s.Equal(int64(10), result.Balances[feeAcc].Amount)
}

func (s *TransferServiceTestSuite) TestConcurrentWithdrawals_NeverOverdraw() {
	acc := s.newAccount("USD", domain.AccountActive)
	s.deposit(acc, 10000, "USD")

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.service.Withdraw(context.Background(), dto.WithdrawRequest{
				AccountID:      acc,
				Amount:         1000,
				CurrencyCode:   "USD",
				IdempotencyKey: fmt.Sprintf("concurrent-withdraw-%d", n),
			}, testCaller)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				s.ErrorIs(err, apperrors.ErrInsufficientFunds)
			}
		}(i)
	}
	wg.Wait()

	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(int64(10000-1000*succeeded), stored.Balance.Amount)
	s.GreaterOrEqual(stored.Balance.Amount, int64(0))

	// Entry log agrees with the balance.
	sum, err := s.repos.OperationRepo.SumEntryDeltas(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(stored.Balance.Amount, sum)
}

func (s *TransferServiceTestSuite) TestOpposingTransfers_NoDeadlock() {
	a := s.newAccount("USD", domain.AccountActive)
	b := s.newAccount("USD", domain.AccountActive)
	s.deposit(a, 50000, "USD")
	s.deposit(b, 50000, "USD")

	const rounds = 25
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := s.service.Transfer(context.Background(), dto.TransferRequest{
				FromAccountID: a, ToAccountID: b, Amount: 10, CurrencyCode: "USD",
				IdempotencyKey: fmt.Sprintf("a-to-b-%d", i),
			}, testCaller)
			s.NoError(err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := s.service.Transfer(context.Background(), dto.TransferRequest{
				FromAccountID: b, ToAccountID: a, Amount: 10, CurrencyCode: "USD",
				IdempotencyKey: fmt.Sprintf("b-to-a-%d", i),
			}, testCaller)
			s.NoError(err)
		}
	}()
	wg.Wait()

	// Equal flows in both directions: balances end where they started.
	accA, err := s.repos.AccountRepo.FindAccountByID(context.Background(), a)
	s.Require().NoError(err)
	accB, err := s.repos.AccountRepo.FindAccountByID(context.Background(), b)
	s.Require().NoError(err)
	s.Equal(int64(50000), accA.Balance.Amount)
	s.Equal(int64(50000), accB.Balance.Amount)
}

func (s *TransferServiceTestSuite) TestLockContention_TimesOutCleanly() {
	acc := s.newAccount("USD", domain.AccountActive)
	s.deposit(acc, 1000, "USD")

	svc := services.NewTransferService(s.repos.AccountRepo, s.repos.OperationRepo, s.locker,
		services.WithLockWait(50*time.Millisecond))

	release, err := s.locker.Acquire(context.Background(), []string{acc}, time.Second)
	s.Require().NoError(err)
	defer release()

	_, err = svc.Withdraw(context.Background(), dto.WithdrawRequest{
		AccountID: acc, Amount: 100, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrOperationTimeout)

	// Nothing was applied while the lock was held.
	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.Equal(int64(1000), stored.Balance.Amount)
}

func (s *TransferServiceTestSuite) TestOperationSequence_StrictlyIncreasing() {
	acc := s.newAccount("USD", domain.AccountActive)

	var last int64
	for i := 0; i < 5; i++ {
		result := s.deposit(acc, 100, "USD")
		s.Greater(result.Operation.SequenceNo, last)
		last = result.Operation.SequenceNo
	}
}

func TestTransferServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}
