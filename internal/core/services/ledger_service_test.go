package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/core/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/repositories/memory"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	repos    portsrepo.RepositoryProvider
	locker   *services.AccountLocker
	transfer portssvc.TransferSvcFacade
	service  portssvc.LedgerSvcFacade
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.repos = memory.NewRepositoryProvider()
	s.locker = services.NewAccountLocker()
	s.transfer = services.NewTransferService(s.repos.AccountRepo, s.repos.OperationRepo, s.locker)
	s.service = services.NewLedgerService(s.repos.AccountRepo, s.repos.OperationRepo, s.locker, 0)
}

func (s *LedgerServiceTestSuite) newAccount(balance int64) string {
	id := uuid.NewString()
	now := time.Now().UTC()
	err := s.repos.AccountRepo.SaveAccount(context.Background(), domain.Account{
		AccountID:    id,
		OwnerID:      uuid.NewString(),
		Name:         "ledger test account",
		CurrencyCode: "USD",
		Status:       domain.AccountActive,
		Balance:      domain.NewMoney(balance, "USD"),
		Version:      1,
		AuditFields:  domain.AuditFields{CreatedAt: now, CreatedBy: testCaller, LastUpdatedAt: now, LastUpdatedBy: testCaller},
	})
	s.Require().NoError(err)
	return id
}

func (s *LedgerServiceTestSuite) TestReconcile_HealthyAccountPasses() {
	acc := s.newAccount(0)
	for i := 0; i < 3; i++ {
		_, err := s.transfer.Deposit(context.Background(), dto.DepositRequest{
			AccountID: acc, Amount: 100, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
		}, testCaller)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.service.Reconcile(context.Background(), acc))

	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.False(stored.Frozen)
}

func (s *LedgerServiceTestSuite) TestReconcile_MismatchFreezesAccount() {
	// A nonzero stored balance with no entries behind it is corruption.
	acc := s.newAccount(500)

	err := s.service.Reconcile(context.Background(), acc)
	s.Require().ErrorIs(err, apperrors.ErrLedgerCorruption)

	stored, err := s.repos.AccountRepo.FindAccountByID(context.Background(), acc)
	s.Require().NoError(err)
	s.True(stored.Frozen)

	// The frozen account rejects all further movement.
	_, err = s.transfer.Deposit(context.Background(), dto.DepositRequest{
		AccountID: acc, Amount: 100, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrLedgerCorruption)
}

func (s *LedgerServiceTestSuite) TestGetHistory_OrderedAndPaginated() {
	acc := s.newAccount(0)
	for i := 0; i < 5; i++ {
		_, err := s.transfer.Deposit(context.Background(), dto.DepositRequest{
			AccountID: acc, Amount: int64(100 * (i + 1)), CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
		}, testCaller)
		s.Require().NoError(err)
	}

	first, err := s.service.GetHistory(context.Background(), acc, dto.HistoryParams{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(first.Entries, 2)
	s.Equal(int64(1), first.Entries[0].Sequence)
	s.Equal(int64(2), first.Entries[1].Sequence)
	s.Require().NotNil(first.NextToken)

	second, err := s.service.GetHistory(context.Background(), acc, dto.HistoryParams{Limit: 2, NextToken: first.NextToken})
	s.Require().NoError(err)
	s.Require().Len(second.Entries, 2)
	s.Equal(int64(3), second.Entries[0].Sequence)
	s.Equal(int64(4), second.Entries[1].Sequence)
	s.Require().NotNil(second.NextToken)

	last, err := s.service.GetHistory(context.Background(), acc, dto.HistoryParams{Limit: 2, NextToken: second.NextToken})
	s.Require().NoError(err)
	s.Require().Len(last.Entries, 1)
	s.Equal(int64(5), last.Entries[0].Sequence)
	s.Nil(last.NextToken)

	// Resulting balances are a running projection.
	s.Equal(int64(100), first.Entries[0].ResultingBalance)
	s.Equal(int64(300), first.Entries[1].ResultingBalance)
	s.Equal(int64(1500), last.Entries[0].ResultingBalance)
}

func (s *LedgerServiceTestSuite) TestGetHistory_BadTokenRejected() {
	acc := s.newAccount(0)
	garbage := "not-a-token"
	_, err := s.service.GetHistory(context.Background(), acc, dto.HistoryParams{Limit: 2, NextToken: &garbage})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (s *LedgerServiceTestSuite) TestGetHistory_UnknownAccount() {
	_, err := s.service.GetHistory(context.Background(), uuid.NewString(), dto.HistoryParams{Limit: 2})
	s.Require().ErrorIs(err, apperrors.ErrNotFound)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func TestEntrySumMatchesBalanceAfterMixedOperations(t *testing.T) {
	repos := memory.NewRepositoryProvider()
	locker := services.NewAccountLocker()
	transfer := services.NewTransferService(repos.AccountRepo, repos.OperationRepo, locker)
	ledger := services.NewLedgerService(repos.AccountRepo, repos.OperationRepo, locker, 0)

	now := time.Now().UTC()
	a, b := uuid.NewString(), uuid.NewString()
	for _, id := range []string{a, b} {
		require.NoError(t, repos.AccountRepo.SaveAccount(context.Background(), domain.Account{
			AccountID:    id,
			OwnerID:      uuid.NewString(),
			Name:         "mixed ops account",
			CurrencyCode: "USD",
			Status:       domain.AccountActive,
			Balance:      domain.Zero("USD"),
			Version:      1,
			AuditFields:  domain.AuditFields{CreatedAt: now, CreatedBy: testCaller, LastUpdatedAt: now, LastUpdatedBy: testCaller},
		}))
	}

	_, err := transfer.Deposit(context.Background(), dto.DepositRequest{AccountID: a, Amount: 9000, CurrencyCode: "USD", IdempotencyKey: uuid.NewString()}, testCaller)
	require.NoError(t, err)
	_, err = transfer.Transfer(context.Background(), dto.TransferRequest{FromAccountID: a, ToAccountID: b, Amount: 2500, CurrencyCode: "USD", IdempotencyKey: uuid.NewString()}, testCaller)
	require.NoError(t, err)
	_, err = transfer.Withdraw(context.Background(), dto.WithdrawRequest{AccountID: b, Amount: 500, CurrencyCode: "USD", IdempotencyKey: uuid.NewString()}, testCaller)
	require.NoError(t, err)

	require.NoError(t, ledger.Reconcile(context.Background(), a))
	require.NoError(t, ledger.Reconcile(context.Background(), b))
}
