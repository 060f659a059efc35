/*
service.go - Balance mutator

PURPOSE:
  Service is the only path allowed to change an account's balance.
  It validates amounts and kinds, builds the transaction record, and
  delegates the atomic read-modify-write to the Store.

CONTRACT:
  Debit:
    - amount must be > 0
    - returns (false, nil) on insufficient funds, with no side effects
    - on success appends a usage transaction with amount -n and the
      post-transaction balance snapshot
  Credit:
    - amount must be > 0, kind must be purchase/refund/bonus
    - always succeeds unless storage fails
    - returns the new balance

CONCURRENCY:
  Two concurrent debits against the same account serialize inside the
  Store (single SQL transaction under the store lock). Neither can act
  on a stale balance; a lost update is a Store bug, not a caller
  concern.

ROLLBACK DISCIPLINE:
  Callers that perform side effects before debiting (creating a report
  row, training a model) must compensate when Debit returns false.
  Debit is synchronous and its refusal is unambiguous precisely so the
  caller can do that.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service exposes the debit/credit primitives over an injected Store.
type Service struct {
	store Store
}

// NewService creates a balance mutator backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Debit atomically removes amount credits from the account.
// Returns (false, nil) when the balance is too low; the balance is
// unchanged and no transaction is recorded.
func (s *Service) Debit(ctx context.Context, id AccountID, amount int64, description string, op Operation, resourceID string) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("debit %d: %w", amount, ErrInvalidAmount)
	}

	tx := &Transaction{
		ID:          NewTransactionID(),
		AccountID:   id,
		Kind:        KindUsage,
		Amount:      -amount,
		Description: description,
		Operation:   op,
		ResourceID:  resourceID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return false, err
	}

	_, err := s.store.Apply(ctx, tx)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Credit atomically adds amount credits to the account and returns the
// new balance. kind must be purchase, refund, or bonus.
func (s *Service) Credit(ctx context.Context, id AccountID, amount int64, description string, kind Kind, op Operation, resourceID string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, ErrInvalidAmount)
	}
	if !kind.CreditKind() {
		return 0, fmt.Errorf("credit with kind %q: %w", kind, ErrInvalidKind)
	}

	tx := &Transaction{
		ID:          NewTransactionID(),
		AccountID:   id,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Operation:   op,
		ResourceID:  resourceID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	return s.store.Apply(ctx, tx)
}

// Balance returns the account's current balance.
// Fails with ErrAccountNotFound; a missing account is a caller error,
// never an implicit zero.
func (s *Service) Balance(ctx context.Context, id AccountID) (int64, error) {
	acc, err := s.store.Account(ctx, id)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// History returns the account's transactions newest first.
// limit 0 means unlimited; the HTTP layer caps user-facing requests.
func (s *Service) History(ctx context.Context, id AccountID, limit, offset int) ([]*Transaction, error) {
	if _, err := s.store.Account(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, id, limit, offset)
}
