package dto

import (
	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// DepositRequest defines the payload for a single-account deposit operation.
type DepositRequest struct {
	AccountID      string `json:"accountID" binding:"required"`
	Amount         int64  `json:"amount" binding:"required,gt=0"` // Minor units
	CurrencyCode   string `json:"currencyCode" binding:"required,currency_code"`
	IdempotencyKey string `json:"idempotencyKey" binding:"required,max=128"`
}

// WithdrawRequest defines the payload for a single-account withdrawal operation.
type WithdrawRequest struct {
	AccountID      string `json:"accountID" binding:"required"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	CurrencyCode   string `json:"currencyCode" binding:"required,currency_code"`
	IdempotencyKey string `json:"idempotencyKey" binding:"required,max=128"`
}

// TransferRequest defines the payload for a two-account transfer operation.
type TransferRequest struct {
	FromAccountID  string `json:"fromAccountID" binding:"required"`
	ToAccountID    string `json:"toAccountID" binding:"required"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	CurrencyCode   string `json:"currencyCode" binding:"required,currency_code"`
	IdempotencyKey string `json:"idempotencyKey" binding:"required,max=128"`
}

// OperationResponse defines the API representation of a committed operation.
type OperationResponse struct {
	OperationID string           `json:"operationID"`
	Kind        string           `json:"kind"`
	Status      string           `json:"status"`
	SequenceNo  int64            `json:"sequenceNo"`
	Balances    map[string]int64 `json:"balances"` // Account id -> balance in minor units
	Replayed    bool             `json:"replayed"`
}

// ToOperationResponse maps an operation result to its API representation.
func ToOperationResponse(r *domain.OperationResult) OperationResponse {
	balances := make(map[string]int64, len(r.Balances))
	for id, m := range r.Balances {
		balances[id] = m.Amount
	}
	return OperationResponse{
		OperationID: r.Operation.OperationID,
		Kind:        string(r.Operation.Kind),
		Status:      string(r.Operation.Status),
		SequenceNo:  r.Operation.SequenceNo,
		Balances:    balances,
		Replayed:    r.Replayed,
	}
}
