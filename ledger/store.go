/*
store.go - Persistence interface for the credits ledger

PURPOSE:
  Defines the storage contract the domain services depend on. Two
  implementations exist:
  - store/sqlite: SQLite-backed, for the server
  - ledger/store: in-memory, for tests and development

ATOMICITY CONTRACT:
  Apply and GrantBonus are the two mutation primitives and both are
  atomic with respect to concurrent callers on the same account: the
  balance read, the balance write, and the transaction append happen
  inside one exclusive scope (a SQL transaction with the store lock
  held, or a row lock in a multi-process deployment). A failed Apply
  leaves no partial state - never a balance change without its
  transaction row, or vice versa.

REPAIR PRIMITIVES:
  DeleteTransaction and SetBalance exist only for the reconciliation
  tools (reconcile.go). Nothing else may call them; the transaction
  log is append-only for all normal operation.
*/
package ledger

import "context"

// Store persists accounts, transactions, the burned email registry,
// and the catalogs.
type Store interface {
	// ── Accounts ─────────────────────────────────────────────────────

	// CreateAccount inserts a new account. Fails with ErrDuplicateEmail
	// if the email already owns an account.
	CreateAccount(ctx context.Context, acc *Account) error

	// Account returns the account or ErrAccountNotFound.
	Account(ctx context.Context, id AccountID) (*Account, error)

	// AccountByEmail returns the account owning email, or ErrAccountNotFound.
	AccountByEmail(ctx context.Context, email string) (*Account, error)

	// Accounts returns all accounts. Used by the reconciliation scans
	// and the admin surface.
	Accounts(ctx context.Context) ([]*Account, error)

	// DeleteAccount removes the account and cascades its transactions.
	// Callers must burn the email first (BonusPolicy.RetireAccount).
	DeleteAccount(ctx context.Context, id AccountID) error

	// ── Ledger ───────────────────────────────────────────────────────

	// Apply atomically adjusts the account balance by tx.Amount,
	// stamps tx.Balance with the post-transaction snapshot, and
	// appends tx. Returns the new balance.
	// Fails with ErrInsufficientFunds (wrapped in
	// InsufficientFundsError) when the result would be negative, with
	// no side effects.
	Apply(ctx context.Context, tx *Transaction) (int64, error)

	// GrantBonus atomically performs the welcome bonus grant: inside
	// one exclusive scope it checks the burned email registry, does a
	// check-and-set of the account's bonus flag, applies tx (a
	// positive bonus transaction), and appends email to the account's
	// bonus email trail. Returns false with no side effects if the
	// email is burned or the flag was already set.
	GrantBonus(ctx context.Context, id AccountID, email string, tx *Transaction) (bool, error)

	// Transactions returns the account's transactions newest first.
	// limit 0 means unlimited (admin surfaces); offset skips rows.
	Transactions(ctx context.Context, id AccountID, limit, offset int) ([]*Transaction, error)

	// BonusTransactions returns the account's welcome bonus
	// transactions (kind=bonus, operation=welcome_bonus) oldest first.
	// Used by the duplicate-bonus scan.
	BonusTransactions(ctx context.Context, id AccountID) ([]*Transaction, error)

	// ── Burned email registry ────────────────────────────────────────

	// BurnEmail records that an email has exhausted bonus eligibility.
	// Upserts: at most one entry per email is written by this path,
	// refreshing BurnedAt and BonusGranted on repeat calls.
	BurnEmail(ctx context.Context, entry *BurnedEmail) error

	// EmailBurned reports whether the email has a registry entry.
	EmailBurned(ctx context.Context, email string) (bool, error)

	// BurnedEmails returns every registry entry, including historical
	// duplicates, ordered by email then BurnedAt descending.
	BurnedEmails(ctx context.Context) ([]*BurnedEmail, error)

	// DeleteBurnedEmail removes one registry entry by row id.
	// Repair primitive for the duplicate cleanup scan only.
	DeleteBurnedEmail(ctx context.Context, id int64) error

	// ── Operation cost catalog ───────────────────────────────────────

	// SeedOperationCosts inserts any missing catalog rows. Existing
	// rows are never overwritten, so admin edits survive reseeding.
	SeedOperationCosts(ctx context.Context, costs []OperationCost) error

	// OperationCost returns the catalog row or ErrOperationNotFound.
	OperationCost(ctx context.Context, op Operation) (*OperationCost, error)

	// UpsertOperationCost inserts or overwrites a catalog row (admin edit).
	UpsertOperationCost(ctx context.Context, cost *OperationCost) error

	// OperationCosts returns all catalog rows.
	OperationCosts(ctx context.Context) ([]*OperationCost, error)

	// ── Credit packages ──────────────────────────────────────────────

	// SeedCreditPackages inserts any missing package rows, never
	// overwriting existing ones.
	SeedCreditPackages(ctx context.Context, pkgs []CreditPackage) error

	// CreditPackages returns active packages in sort order.
	CreditPackages(ctx context.Context) ([]*CreditPackage, error)

	// ── Repair primitives (reconciliation tools only) ────────────────

	DeleteTransaction(ctx context.Context, id TransactionID) error
	SetBalance(ctx context.Context, id AccountID, balance int64) error
}
