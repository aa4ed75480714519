package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrCurrencyMismatch indicates arithmetic or movement between two different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ErrInsufficientFunds indicates a withdrawal or transfer would drive a balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrAccountNotActive indicates the account status forbids the requested movement.
var ErrAccountNotActive = errors.New("account not active")

// ErrAccountClosed indicates the account is closed and admits no money movement.
var ErrAccountClosed = errors.New("account closed")

// ErrLoanNotActive indicates the loan is not in a state that accepts repayments.
var ErrLoanNotActive = errors.New("loan not active")

// ErrOverRepayment indicates a repayment exceeds the outstanding balance beyond
// the policy rounding tolerance.
var ErrOverRepayment = errors.New("repayment exceeds outstanding balance")

// ErrOperationTimeout indicates exclusive access to the involved accounts could
// not be acquired within the bounded wait. Nothing was mutated; safe to retry
// with the same idempotency key.
var ErrOperationTimeout = errors.New("operation timed out acquiring account locks")

// ErrLedgerCorruption indicates the entry history no longer sums to the stored
// balance. Fatal for the affected account: mutation is halted until an operator
// clears the freeze outside this engine.
var ErrLedgerCorruption = errors.New("ledger corruption detected")

// ErrStaleVersion indicates an optimistic-concurrency conflict with an
// out-of-process writer. Retryable with the same idempotency key.
var ErrStaleVersion = errors.New("account version conflict")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// AppError carries a storage-layer failure with an HTTP-ish code and cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
