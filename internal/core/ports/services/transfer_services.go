package services

import (
	"context"

	"github.com/sulimanbank/bankcore/internal/core/domain"
	"github.com/sulimanbank/bankcore/internal/dto"
)

// TransferSvcFacade is the transfer coordinator: the only component that moves
// money. Every method is one atomic operation with idempotency-key replay.
type TransferSvcFacade interface {
	// Deposit credits an account. Allowed for active and suspended accounts.
	Deposit(ctx context.Context, req dto.DepositRequest, callerID string) (*domain.OperationResult, error)

	// Withdraw debits an active account, never below zero.
	Withdraw(ctx context.Context, req dto.WithdrawRequest, callerID string) (*domain.OperationResult, error)

	// Transfer atomically moves money between two distinct accounts.
	Transfer(ctx context.Context, req dto.TransferRequest, callerID string) (*domain.OperationResult, error)

	// TransferAs is Transfer with an explicit operation kind; the loan book
	// routes disbursements and repayments through it so every balance change
	// has a single point of truth.
	TransferAs(ctx context.Context, kind domain.OperationKind, req dto.TransferRequest, callerID string) (*domain.OperationResult, error)
}
