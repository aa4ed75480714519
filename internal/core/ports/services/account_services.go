package services

import (
	"context"

	"github.com/sulimanbank/bankcore/internal/core/domain"
	"github.com/sulimanbank/bankcore/internal/dto"
)

// AccountSvcFacade is the account-management collaborator: it owns account
// lifecycle status but never balances.
type AccountSvcFacade interface {
	// CreateAccount creates a new account in ACTIVE status with a zero balance.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorID string) (*domain.Account, error)

	// GetAccountByID retrieves an account.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a page of accounts.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)

	// SuspendAccount blocks withdrawals and transfers out. Deposits still land.
	SuspendAccount(ctx context.Context, accountID string, callerID string) (*domain.Account, error)

	// ReactivateAccount returns a suspended account to ACTIVE. Closed accounts
	// are never resurrected.
	ReactivateAccount(ctx context.Context, accountID string, callerID string) (*domain.Account, error)

	// CloseAccount transitions to CLOSED. Requires a zero balance.
	CloseAccount(ctx context.Context, accountID string, callerID string) (*domain.Account, error)
}
