package dto

import (
	"time"

	"github.com/sulimanbank/bankcore/internal/core/domain"
)

// CreateAccountRequest defines the payload for creating a new account.
type CreateAccountRequest struct {
	OwnerID      string `json:"ownerID" binding:"required"`
	Name         string `json:"name" binding:"required,max=100"`
	CurrencyCode string `json:"currencyCode" binding:"required,currency_code"`
}

// AccountResponse defines the API representation of an account.
type AccountResponse struct {
	AccountID    string    `json:"accountID"`
	OwnerID      string    `json:"ownerID"`
	Name         string    `json:"name"`
	CurrencyCode string    `json:"currencyCode"`
	Status       string    `json:"status"`
	Balance      int64     `json:"balance"` // Minor units, exact
	Version      int64     `json:"version"`
	Frozen       bool      `json:"frozen"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToAccountResponse maps a domain account to its API representation.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:    a.AccountID,
		OwnerID:      a.OwnerID,
		Name:         a.Name,
		CurrencyCode: a.CurrencyCode,
		Status:       string(a.Status),
		Balance:      a.Balance.Amount,
		Version:      a.Version,
		Frozen:       a.Frozen,
		CreatedAt:    a.CreatedAt,
	}
}
