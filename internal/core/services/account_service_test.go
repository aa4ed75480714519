package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/domain"
	portsrepo "github.com/sulimanbank/bankcore/internal/core/ports/repositories"
	portssvc "github.com/sulimanbank/bankcore/internal/core/ports/services"
	"github.com/sulimanbank/bankcore/internal/core/services"
	"github.com/sulimanbank/bankcore/internal/dto"
	"github.com/sulimanbank/bankcore/internal/repositories/memory"
)

type AccountServiceTestSuite struct {
	suite.Suite
	repos    portsrepo.RepositoryProvider
	locker   *services.AccountLocker
	transfer portssvc.TransferSvcFacade
	service  portssvc.AccountSvcFacade
}

func (s *AccountServiceTestSuite) SetupTest() {
	s.repos = memory.NewRepositoryProvider()
	s.locker = services.NewAccountLocker()
	s.transfer = services.NewTransferService(s.repos.AccountRepo, s.repos.OperationRepo, s.locker)
	s.service = services.NewAccountService(s.repos.AccountRepo, s.locker, 0)
}

func (s *AccountServiceTestSuite) create() *domain.Account {
	account, err := s.service.CreateAccount(context.Background(), dto.CreateAccountRequest{
		OwnerID:      uuid.NewString(),
		Name:         "Checking",
		CurrencyCode: "USD",
	}, testCaller)
	s.Require().NoError(err)
	return account
}

func (s *AccountServiceTestSuite) TestCreateAccount_StartsActiveWithZeroBalance() {
	account := s.create()

	s.Equal(domain.AccountActive, account.Status)
	s.Equal(int64(0), account.Balance.Amount)
	s.Equal(int64(1), account.Version)

	stored, err := s.service.GetAccountByID(context.Background(), account.AccountID)
	s.Require().NoError(err)
	s.Equal(account.AccountID, stored.AccountID)
}

func (s *AccountServiceTestSuite) TestSuspendAndReactivate() {
	account := s.create()

	suspended, err := s.service.SuspendAccount(context.Background(), account.AccountID, testCaller)
	s.Require().NoError(err)
	s.Equal(domain.AccountSuspended, suspended.Status)

	// Suspending twice is a validation error.
	_, err = s.service.SuspendAccount(context.Background(), account.AccountID, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	reactivated, err := s.service.ReactivateAccount(context.Background(), account.AccountID, testCaller)
	s.Require().NoError(err)
	s.Equal(domain.AccountActive, reactivated.Status)
}

func (s *AccountServiceTestSuite) TestCloseAccount_RequiresZeroBalance() {
	account := s.create()
	_, err := s.transfer.Deposit(context.Background(), dto.DepositRequest{
		AccountID: account.AccountID, Amount: 100, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().NoError(err)

	_, err = s.service.CloseAccount(context.Background(), account.AccountID, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	_, err = s.transfer.Withdraw(context.Background(), dto.WithdrawRequest{
		AccountID: account.AccountID, Amount: 100, CurrencyCode: "USD", IdempotencyKey: uuid.NewString(),
	}, testCaller)
	s.Require().NoError(err)

	closed, err := s.service.CloseAccount(context.Background(), account.AccountID, testCaller)
	s.Require().NoError(err)
	s.Equal(domain.AccountClosed, closed.Status)
}

func (s *AccountServiceTestSuite) TestClosedAccount_IsNeverResurrected() {
	account := s.create()

	_, err := s.service.CloseAccount(context.Background(), account.AccountID, testCaller)
	s.Require().NoError(err)

	_, err = s.service.ReactivateAccount(context.Background(), account.AccountID, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.CloseAccount(context.Background(), account.AccountID, testCaller)
	s.Require().ErrorIs(err, apperrors.ErrAccountClosed)
}

func (s *AccountServiceTestSuite) TestGetAccountByID_NotFound() {
	_, err := s.service.GetAccountByID(context.Background(), uuid.NewString())
	s.Require().ErrorIs(err, apperrors.ErrNotFound)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
