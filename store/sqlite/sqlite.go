/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Durable persistence for accounts, the append-only transaction log,
  the burned email registry, and the catalogs. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences
  (and SELECT ... FOR UPDATE instead of the store mutex).

ATOMIC MUTATIONS:
  Apply and GrantBonus each run inside one SQL transaction with the
  store mutex held, so a concurrent debit can never act on a stale
  balance: read balance, guard, write balance, append transaction row
  is one unit. A failure before commit leaves no partial state.

APPEND-ONLY ENFORCEMENT:
  No UPDATE statements ever touch the transactions table. The only
  DELETE lives in DeleteTransaction, the repair primitive reserved for
  the reconciliation tools.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: the interface contract
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/valutai/credits-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; also keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (one row per ledger identity)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		bonus_granted INTEGER NOT NULL DEFAULT 0,
		bonus_emails TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		operation_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- History listing (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_account_created
		ON transactions(account_id, created_at DESC);

	-- Duplicate-bonus scan
	CREATE INDEX IF NOT EXISTS idx_transactions_account_kind_op
		ON transactions(account_id, kind, operation_type);

	-- Burned emails (bonus eligibility tombstones; duplicates possible
	-- from legacy paths, cleaned by the reconciliation scan)
	CREATE TABLE IF NOT EXISTS burned_emails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		bonus_granted INTEGER NOT NULL DEFAULT 1,
		burned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_burned_emails_email
		ON burned_emails(email);

	-- Operation cost catalog
	CREATE TABLE IF NOT EXISTS operation_costs (
		operation TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cost INTEGER NOT NULL CHECK (cost >= 0),
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Credit packages
	CREATE TABLE IF NOT EXISTS credit_packages (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		credits INTEGER NOT NULL,
		price TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'EUR',
		popular INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// timeText serializes timestamps with nanosecond precision so that
// created_at ordering (plus rowid as tiebreak) stays stable.
func timeText(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, acc *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now
	acc.Email = ledger.NormalizeEmail(acc.Email)

	emailsJSON, _ := json.Marshal(acc.BonusEmails)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, balance, bonus_granted, bonus_emails, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Email, acc.Balance, boolInt(acc.BonusGranted),
		string(emailsJSON), timeText(acc.CreatedAt), timeText(acc.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Account returns one account by id.
func (s *Store) Account(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return scanAccountRow(s.db.QueryRowContext(ctx, `
		SELECT id, email, balance, bonus_granted, bonus_emails, created_at, updated_at
		FROM accounts WHERE id = ?`, id))
}

// AccountByEmail returns one account by email.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*ledger.Account, error) {
	return scanAccountRow(s.db.QueryRowContext(ctx, `
		SELECT id, email, balance, bonus_granted, bonus_emails, created_at, updated_at
		FROM accounts WHERE email = ?`, ledger.NormalizeEmail(email)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(row *sql.Row) (*ledger.Account, error) {
	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}
	return acc, nil
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	var (
		acc          ledger.Account
		bonusGranted int
		emailsJSON   string
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&acc.ID, &acc.Email, &acc.Balance, &bonusGranted, &emailsJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	acc.BonusGranted = bonusGranted == 1
	json.Unmarshal([]byte(emailsJSON), &acc.BonusEmails)
	acc.CreatedAt = parseTime(createdAt)
	acc.UpdatedAt = parseTime(updatedAt)
	return &acc, nil
}

// Accounts returns all accounts, oldest first.
func (s *Store) Accounts(ctx context.Context) ([]*ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, balance, bonus_granted, bonus_emails, created_at, updated_at
		FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*ledger.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// DeleteAccount removes the account; foreign keys cascade the
// transaction rows.
func (s *Store) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// =============================================================================
// LEDGER MUTATIONS
// =============================================================================

// Apply atomically adjusts the balance and appends the transaction.
// The read-modify-write runs inside one SQL transaction with the store
// lock held - the single-process equivalent of SELECT ... FOR UPDATE.
func (s *Store) Apply(ctx context.Context, tx *ledger.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	newBalance, err := applyTx(ctx, dbtx, tx)
	if err != nil {
		return 0, err
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newBalance, nil
}

// applyTx performs the balance adjustment inside an open SQL
// transaction. Shared by Apply and GrantBonus.
func applyTx(ctx context.Context, dbtx *sql.Tx, tx *ledger.Transaction) (int64, error) {
	var balance int64
	err := dbtx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, tx.AccountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ledger.ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	newBalance := balance + tx.Amount
	if newBalance < 0 {
		return 0, &ledger.InsufficientFundsError{
			AccountID: tx.AccountID,
			Available: balance,
			Requested: -tx.Amount,
		}
	}

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Balance = newBalance

	_, err = dbtx.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		newBalance, timeText(time.Now()), tx.AccountID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount, balance, description, operation_type, resource_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.AccountID, string(tx.Kind), tx.Amount, tx.Balance,
		tx.Description, string(tx.Operation), tx.ResourceID, timeText(tx.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}
	return newBalance, nil
}

// GrantBonus performs the welcome bonus grant as one atomic unit:
// burned-email check, bonus flag check-and-set, credit, email trail
// append. Returns false with no side effects when ineligible.
func (s *Store) GrantBonus(ctx context.Context, id ledger.AccountID, email string, tx *ledger.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = ledger.NormalizeEmail(email)

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	var burned int
	if err := dbtx.QueryRowContext(ctx, `SELECT COUNT(*) FROM burned_emails WHERE email = ?`, email).Scan(&burned); err != nil {
		return false, fmt.Errorf("failed to check burned emails: %w", err)
	}
	if burned > 0 {
		return false, nil
	}

	// Check-and-set: only one caller can flip the flag.
	res, err := dbtx.ExecContext(ctx, `
		UPDATE accounts SET bonus_granted = 1, updated_at = ?
		WHERE id = ? AND bonus_granted = 0`,
		timeText(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set bonus flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := dbtx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE id = ?`, id).Scan(&exists); err != nil {
			return false, err
		}
		if exists == 0 {
			return false, ledger.ErrAccountNotFound
		}
		return false, nil // already granted
	}

	if _, err := applyTx(ctx, dbtx, tx); err != nil {
		return false, err
	}

	// Append the email to the account's historical trail.
	var emailsJSON string
	if err := dbtx.QueryRowContext(ctx, `SELECT bonus_emails FROM accounts WHERE id = ?`, id).Scan(&emailsJSON); err != nil {
		return false, fmt.Errorf("failed to read bonus emails: %w", err)
	}
	var emails []string
	json.Unmarshal([]byte(emailsJSON), &emails)
	emails = append(emails, email)
	updated, _ := json.Marshal(emails)
	if _, err := dbtx.ExecContext(ctx, `UPDATE accounts SET bonus_emails = ? WHERE id = ?`, string(updated), id); err != nil {
		return false, fmt.Errorf("failed to update bonus emails: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bonus grant: %w", err)
	}
	return true, nil
}

// =============================================================================
// TRANSACTION QUERIES
// =============================================================================

// Transactions lists an account's transactions newest first.
// limit 0 means unlimited.
func (s *Store) Transactions(ctx context.Context, id ledger.AccountID, limit, offset int) ([]*ledger.Transaction, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, balance, description, operation_type, resource_id, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// BonusTransactions lists welcome bonus transactions oldest first.
func (s *Store) BonusTransactions(ctx context.Context, id ledger.AccountID) ([]*ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, balance, description, operation_type, resource_id, created_at
		FROM transactions
		WHERE account_id = ? AND kind = ? AND operation_type = ?
		ORDER BY created_at ASC, rowid ASC`,
		id, string(ledger.KindBonus), string(ledger.OpWelcomeBonus))
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	for rows.Next() {
		var (
			tx        ledger.Transaction
			kind      string
			operation string
			createdAt string
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &kind, &tx.Amount, &tx.Balance,
			&tx.Description, &operation, &tx.ResourceID, &createdAt); err != nil {
			return nil, err
		}
		tx.Kind = ledger.Kind(kind)
		tx.Operation = ledger.Operation(operation)
		tx.CreatedAt = parseTime(createdAt)
		out = append(out, &tx)
	}
	return out, rows.Err()
}

// =============================================================================
// BURNED EMAIL REGISTRY
// =============================================================================

// BurnEmail upserts the registry entry for an email.
func (s *Store) BurnEmail(ctx context.Context, entry *ledger.BurnedEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := ledger.NormalizeEmail(entry.Email)

	res, err := s.db.ExecContext(ctx, `
		UPDATE burned_emails SET bonus_granted = ?, burned_at = ? WHERE email = ?`,
		boolInt(entry.BonusGranted), timeText(entry.BurnedAt), email,
	)
	if err != nil {
		return fmt.Errorf("failed to update burned email: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO burned_emails (email, bonus_granted, burned_at) VALUES (?, ?, ?)`,
		email, boolInt(entry.BonusGranted), timeText(entry.BurnedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert burned email: %w", err)
	}
	return nil
}

// EmailBurned reports whether email has a registry entry.
func (s *Store) EmailBurned(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM burned_emails WHERE email = ?`,
		ledger.NormalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check burned email: %w", err)
	}
	return n > 0, nil
}

// BurnedEmails lists every entry, ordered by email then newest first.
func (s *Store) BurnedEmails(ctx context.Context) ([]*ledger.BurnedEmail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, bonus_granted, burned_at
		FROM burned_emails ORDER BY email, burned_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list burned emails: %w", err)
	}
	defer rows.Close()

	var out []*ledger.BurnedEmail
	for rows.Next() {
		var (
			e            ledger.BurnedEmail
			bonusGranted int
			burnedAt     string
		)
		if err := rows.Scan(&e.ID, &e.Email, &bonusGranted, &burnedAt); err != nil {
			return nil, err
		}
		e.BonusGranted = bonusGranted == 1
		e.BurnedAt = parseTime(burnedAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteBurnedEmail removes one registry entry by row id.
func (s *Store) DeleteBurnedEmail(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM burned_emails WHERE id = ?`, id)
	return err
}

// InsertBurnedEmailRaw appends a registry entry without the upsert
// dedup, reproducing what the legacy deletion path could do. Used by
// tests for the duplicate cleanup scan.
func (s *Store) InsertBurnedEmailRaw(ctx context.Context, entry *ledger.BurnedEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO burned_emails (email, bonus_granted, burned_at) VALUES (?, ?, ?)`,
		ledger.NormalizeEmail(entry.Email), boolInt(entry.BonusGranted), timeText(entry.BurnedAt),
	)
	return err
}

// =============================================================================
// OPERATION COST CATALOG
// =============================================================================

// SeedOperationCosts inserts missing rows, never overwriting existing
// ones.
func (s *Store) SeedOperationCosts(ctx context.Context, costs []ledger.OperationCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range costs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO operation_costs (operation, name, description, cost, active)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(operation) DO NOTHING`,
			string(c.Operation), c.Name, c.Description, c.Cost, boolInt(c.Active),
		)
		if err != nil {
			return fmt.Errorf("failed to seed operation cost %s: %w", c.Operation, err)
		}
	}
	return nil
}

// OperationCost returns one catalog row.
func (s *Store) OperationCost(ctx context.Context, op ledger.Operation) (*ledger.OperationCost, error) {
	var (
		c      ledger.OperationCost
		active int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT operation, name, description, cost, active
		FROM operation_costs WHERE operation = ?`, string(op)).
		Scan(&c.Operation, &c.Name, &c.Description, &c.Cost, &active)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrOperationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read operation cost: %w", err)
	}
	c.Active = active == 1
	return &c, nil
}

// UpsertOperationCost inserts or overwrites a catalog row.
func (s *Store) UpsertOperationCost(ctx context.Context, cost *ledger.OperationCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operation_costs (operation, name, description, cost, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(operation) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description,
			cost        = excluded.cost,
			active      = excluded.active`,
		string(cost.Operation), cost.Name, cost.Description, cost.Cost, boolInt(cost.Active),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert operation cost: %w", err)
	}
	return nil
}

// OperationCosts lists the full catalog.
func (s *Store) OperationCosts(ctx context.Context) ([]*ledger.OperationCost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation, name, description, cost, active
		FROM operation_costs ORDER BY operation`)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation costs: %w", err)
	}
	defer rows.Close()

	var out []*ledger.OperationCost
	for rows.Next() {
		var (
			c      ledger.OperationCost
			active int
		)
		if err := rows.Scan(&c.Operation, &c.Name, &c.Description, &c.Cost, &active); err != nil {
			return nil, err
		}
		c.Active = active == 1
		out = append(out, &c)
	}
	return out, rows.Err()
}

// =============================================================================
// CREDIT PACKAGES
// =============================================================================

// SeedCreditPackages inserts missing package rows.
func (s *Store) SeedCreditPackages(ctx context.Context, pkgs []ledger.CreditPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pkgs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO credit_packages (id, name, credits, price, currency, popular, sort_order, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			p.ID, p.Name, p.Credits, p.Price.String(), p.Currency,
			boolInt(p.Popular), p.SortOrder, boolInt(p.Active),
		)
		if err != nil {
			return fmt.Errorf("failed to seed credit package %s: %w", p.ID, err)
		}
	}
	return nil
}

// CreditPackages lists active packages in sort order.
func (s *Store) CreditPackages(ctx context.Context) ([]*ledger.CreditPackage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, credits, price, currency, popular, sort_order, active
		FROM credit_packages WHERE active = 1 ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit packages: %w", err)
	}
	defer rows.Close()

	var out []*ledger.CreditPackage
	for rows.Next() {
		var (
			p       ledger.CreditPackage
			price   string
			popular int
			active  int
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Credits, &price, &p.Currency, &popular, &p.SortOrder, &active); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid price for package %s: %w", p.ID, err)
		}
		p.Price = d
		p.Popular = popular == 1
		p.Active = active == 1
		out = append(out, &p)
	}
	return out, rows.Err()
}

// =============================================================================
// REPAIR PRIMITIVES
// =============================================================================

// DeleteTransaction removes one transaction row. Reconciliation tools
// only; everything else treats the log as append-only.
func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

// SetBalance overwrites an account's stored balance. Reconciliation
// tools only.
func (s *Store) SetBalance(ctx context.Context, id ledger.AccountID, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance, timeText(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
