/*
errors.go - Centralized error types for the credits ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / the helper predicates; the HTTP
  layer maps these to status codes without leaking internal detail.

ERROR CATEGORIES:
  1. Lookup errors - missing accounts, unseeded catalog entries
  2. Validation errors - malformed transactions, bad amounts
  3. Funds errors - debits exceeding the balance

NOTE:
  "Bonus already granted" is NOT an error. BonusPolicy.Grant returns
  (false, nil) in that case, matching the ledger's contract that an
  exhausted grant is a normal outcome.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateEmail is returned when creating an account with an
	// email that already owns one.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInsufficientFunds is returned by Store.Apply when a debit would
	// drive the balance negative. Service.Debit converts it to a plain
	// false return; it never escapes to callers as an error.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOperationNotFound is returned when an operation id has no
	// seeded cost. This is an internal misconfiguration: callers must
	// surface "pricing unavailable", never fall back to a made-up price.
	ErrOperationNotFound = errors.New("operation cost not found")

	// ErrInvalidAmount is returned when a debit or credit amount is not
	// strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidKind is returned when a credit is requested with a kind
	// that is not a credit kind (purchase, refund, bonus).
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrValidation is returned when a transaction record is internally
	// inconsistent. This indicates a programming error and is logged as
	// such, never shown raw to end users.
	ErrValidation = errors.New("transaction validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports a debit that exceeded the balance.
type InsufficientFundsError struct {
	AccountID AccountID
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %d credits, requested %d",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// ValidationErrorDetail reports an internally inconsistent transaction.
type ValidationErrorDetail struct {
	Code    string
	Message string
}

func (e *ValidationErrorDetail) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationErrorDetail) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrOperationNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrInsufficientFunds)
}
