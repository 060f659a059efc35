/*
Package ledger implements the ValutAI prepaid credits ledger.

PURPOSE:
  This package contains the domain types and services for managing
  per-account credit balances: the account record, the append-only
  transaction log, the welcome bonus policy, the operation cost
  catalog, and the reconciliation tools.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: one ledger identity with an integer credit balance
  - Transaction: an immutable record of one balance change
  - BurnedEmail: an email that has exhausted bonus eligibility
  - OperationCost / CreditPackage: read-mostly catalog rows

DESIGN PRINCIPLES:
  1. Immutability: transactions are never edited; admin repair tools
     are the only code allowed to delete rows, and they recompute the
     balance from what remains.
  2. Integer credits: balances and amounts are int64 credits. Money
     (package prices) uses decimal.Decimal, never floats.
  3. Snapshot invariant: every transaction carries the post-transaction
     balance, so replaying the log from zero reproduces the stored
     balance exactly.

SEE ALSO:
  - service.go: the only path allowed to mutate a balance
  - bonus.go: one-time welcome bonus policy
  - store.go: persistence interface
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TransactionID string

// NewAccountID returns a fresh random account identifier.
func NewAccountID() AccountID {
	return AccountID(uuid.NewString())
}

// NewTransactionID returns a fresh random transaction identifier.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

// =============================================================================
// TRANSACTION KINDS
// =============================================================================

// Kind is the business reason for a balance change.
type Kind string

const (
	KindPurchase Kind = "purchase" // Credits bought via a payment
	KindUsage    Kind = "usage"    // Credits spent on a paid operation
	KindRefund   Kind = "refund"   // Credits returned after a failed operation
	KindBonus    Kind = "bonus"    // One-time promotional grant
)

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPurchase, KindUsage, KindRefund, KindBonus:
		return true
	}
	return false
}

// CreditKind reports whether k may appear on a positive-amount
// transaction. Usage is the only debit kind.
func (k Kind) CreditKind() bool {
	return k.Valid() && k != KindUsage
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Operation tags a transaction with the paid feature that caused it.
type Operation string

const (
	OpDatasetUpload    Operation = "dataset_upload"
	OpModelTraining    Operation = "model_training"
	OpPrediction       Operation = "prediction"
	OpReportGeneration Operation = "report_generation"
	OpWelcomeBonus     Operation = "welcome_bonus"
)

// =============================================================================
// ACCOUNT - One ledger identity
// =============================================================================

// Account holds one user's credit balance.
//
// INVARIANTS:
//   - Balance >= 0 at all times
//   - Balance changes only through Service.Debit / Service.Credit /
//     BonusPolicy.Grant (all of which go through Store.Apply)
//   - BonusEmails is the historical audit trail of emails this account
//     used for bonus eligibility, in grant order
type Account struct {
	ID           AccountID `json:"id"`
	Email        string    `json:"email"`
	Balance      int64     `json:"balance"`
	BonusGranted bool      `json:"bonus_granted"`
	BonusEmails  []string  `json:"bonus_emails,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// =============================================================================
// TRANSACTION - Immutable record of one balance change
// =============================================================================

// Transaction records one balance change. Amount is signed: negative
// for usage, positive for purchase/refund/bonus. Balance is the
// account balance immediately after this transaction committed.
type Transaction struct {
	ID          TransactionID `json:"id"`
	AccountID   AccountID     `json:"account_id"`
	Kind        Kind          `json:"kind"`
	Amount      int64         `json:"amount"`
	Balance     int64         `json:"balance"`
	Description string        `json:"description"`
	Operation   Operation     `json:"operation,omitempty"`
	ResourceID  string        `json:"resource_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Validate checks the internal consistency of a transaction before it
// is applied: known kind, non-zero amount, and sign agreeing with kind.
func (t *Transaction) Validate() error {
	if t.AccountID == "" {
		return &ValidationErrorDetail{Code: "missing_account", Message: "transaction has no account id"}
	}
	if !t.Kind.Valid() {
		return &ValidationErrorDetail{Code: "unknown_kind", Message: "unknown transaction kind: " + string(t.Kind)}
	}
	if t.Amount == 0 {
		return &ValidationErrorDetail{Code: "zero_amount", Message: "transaction amount must be non-zero"}
	}
	if t.Kind == KindUsage && t.Amount > 0 {
		return &ValidationErrorDetail{Code: "sign_mismatch", Message: "usage transactions must carry a negative amount"}
	}
	if t.Kind != KindUsage && t.Amount < 0 {
		return &ValidationErrorDetail{Code: "sign_mismatch", Message: string(t.Kind) + " transactions must carry a positive amount"}
	}
	return nil
}

// =============================================================================
// BURNED EMAIL - Bonus eligibility tombstone
// =============================================================================

// BurnedEmail marks an email address that has exhausted its welcome
// bonus eligibility. Entries survive account deletion, which is what
// stops delete-and-recreate bonus farming.
type BurnedEmail struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	BonusGranted bool      `json:"bonus_granted"`
	BurnedAt     time.Time `json:"burned_at"`
}

// =============================================================================
// CATALOG ROWS
// =============================================================================

// OperationCost maps a paid operation to its credit price.
type OperationCost struct {
	Operation   Operation `json:"operation"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Cost        int64     `json:"cost"`
	Active      bool      `json:"active"`
}

// CreditPackage is a purchasable credit bundle. The payment flow is an
// external collaborator; on success it credits the account with
// kind=purchase.
type CreditPackage struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Credits   int64           `json:"credits"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Popular   bool            `json:"popular"`
	SortOrder int             `json:"sort_order"`
	Active    bool            `json:"active"`
}
