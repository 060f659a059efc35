// Package store provides an in-memory ledger.Store for tests and
// development. The SQLite implementation lives in store/sqlite.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valutai/credits-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.Store with maps under one mutex. A single
// lock serializes all mutations, which trivially satisfies the
// per-account atomicity contract of Apply and GrantBonus.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[ledger.AccountID]*ledger.Account
	byEmail      map[string]ledger.AccountID
	transactions map[ledger.AccountID][]*ledger.Transaction
	burned       []*ledger.BurnedEmail
	burnedSeq    int64
	costs        map[ledger.Operation]*ledger.OperationCost
	packages     map[string]*ledger.CreditPackage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[ledger.AccountID]*ledger.Account),
		byEmail:      make(map[string]ledger.AccountID),
		transactions: make(map[ledger.AccountID][]*ledger.Transaction),
		costs:        make(map[ledger.Operation]*ledger.OperationCost),
		packages:     make(map[string]*ledger.CreditPackage),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, acc *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := ledger.NormalizeEmail(acc.Email)
	if _, taken := m.byEmail[email]; taken {
		return ledger.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	cp := *acc
	cp.Email = email
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	m.accounts[cp.ID] = &cp
	m.byEmail[email] = cp.ID
	acc.Email = cp.Email
	acc.CreatedAt = cp.CreatedAt
	acc.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *Memory) Account(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(id)
}

func (m *Memory) accountLocked(id ledger.AccountID) (*ledger.Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *acc
	cp.BonusEmails = append([]string(nil), acc.BonusEmails...)
	return &cp, nil
}

func (m *Memory) AccountByEmail(_ context.Context, email string) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[ledger.NormalizeEmail(email)]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return m.accountLocked(id)
}

func (m *Memory) Accounts(_ context.Context) ([]*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ledger.Account, 0, len(m.accounts))
	for id := range m.accounts {
		acc, _ := m.accountLocked(id)
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	delete(m.byEmail, acc.Email)
	delete(m.accounts, id)
	delete(m.transactions, id) // cascade
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) Apply(_ context.Context, tx *ledger.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(tx)
}

func (m *Memory) applyLocked(tx *ledger.Transaction) (int64, error) {
	acc, ok := m.accounts[tx.AccountID]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}

	newBalance := acc.Balance + tx.Amount
	if newBalance < 0 {
		return 0, &ledger.InsufficientFundsError{
			AccountID: tx.AccountID,
			Available: acc.Balance,
			Requested: -tx.Amount,
		}
	}

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Balance = newBalance

	acc.Balance = newBalance
	acc.UpdatedAt = time.Now().UTC()

	cp := *tx
	m.transactions[tx.AccountID] = append(m.transactions[tx.AccountID], &cp)
	return newBalance, nil
}

func (m *Memory) GrantBonus(_ context.Context, id ledger.AccountID, email string, tx *ledger.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = ledger.NormalizeEmail(email)
	for _, b := range m.burned {
		if b.Email == email {
			return false, nil
		}
	}

	acc, ok := m.accounts[id]
	if !ok {
		return false, ledger.ErrAccountNotFound
	}
	if acc.BonusGranted {
		return false, nil
	}

	if _, err := m.applyLocked(tx); err != nil {
		return false, err
	}
	acc.BonusGranted = true
	acc.BonusEmails = append(acc.BonusEmails, email)
	return true, nil
}

func (m *Memory) Transactions(_ context.Context, id ledger.AccountID, limit, offset int) ([]*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.transactions[id]
	// Newest first: stored order is append (oldest first), walk backwards.
	out := make([]*ledger.Transaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}

	if offset > 0 {
		if offset >= len(out) {
			return []*ledger.Transaction{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) BonusTransactions(_ context.Context, id ledger.AccountID) ([]*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Transaction
	for _, tx := range m.transactions[id] {
		if tx.Kind == ledger.KindBonus && tx.Operation == ledger.OpWelcomeBonus {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================================================================
// BURNED EMAIL REGISTRY
// =============================================================================

func (m *Memory) BurnEmail(_ context.Context, entry *ledger.BurnedEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := ledger.NormalizeEmail(entry.Email)
	for _, b := range m.burned {
		if b.Email == email {
			// Upsert: refresh the existing entry.
			b.BonusGranted = entry.BonusGranted
			b.BurnedAt = entry.BurnedAt
			return nil
		}
	}

	m.burnedSeq++
	m.burned = append(m.burned, &ledger.BurnedEmail{
		ID:           m.burnedSeq,
		Email:        email,
		BonusGranted: entry.BonusGranted,
		BurnedAt:     entry.BurnedAt,
	})
	return nil
}

func (m *Memory) EmailBurned(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = ledger.NormalizeEmail(email)
	for _, b := range m.burned {
		if b.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) BurnedEmails(_ context.Context) ([]*ledger.BurnedEmail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ledger.BurnedEmail, len(m.burned))
	for i, b := range m.burned {
		cp := *b
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Email != out[j].Email {
			return out[i].Email < out[j].Email
		}
		return out[i].BurnedAt.After(out[j].BurnedAt)
	})
	return out, nil
}

func (m *Memory) DeleteBurnedEmail(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range m.burned {
		if b.ID == id {
			m.burned = append(m.burned[:i], m.burned[i+1:]...)
			return nil
		}
	}
	return nil
}

// InjectBurnedDuplicate appends a raw registry entry without the
// upsert dedup. Test hook for the duplicate cleanup scan.
func (m *Memory) InjectBurnedDuplicate(entry *ledger.BurnedEmail) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.burnedSeq++
	cp := *entry
	cp.ID = m.burnedSeq
	cp.Email = ledger.NormalizeEmail(cp.Email)
	m.burned = append(m.burned, &cp)
}

// =============================================================================
// CATALOGS
// =============================================================================

func (m *Memory) SeedOperationCosts(_ context.Context, costs []ledger.OperationCost) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range costs {
		if _, exists := m.costs[c.Operation]; !exists {
			cp := c
			m.costs[c.Operation] = &cp
		}
	}
	return nil
}

func (m *Memory) OperationCost(_ context.Context, op ledger.Operation) (*ledger.OperationCost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.costs[op]
	if !ok {
		return nil, ledger.ErrOperationNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) UpsertOperationCost(_ context.Context, cost *ledger.OperationCost) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *cost
	m.costs[cost.Operation] = &cp
	return nil
}

func (m *Memory) OperationCosts(_ context.Context) ([]*ledger.OperationCost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ledger.OperationCost, 0, len(m.costs))
	for _, c := range m.costs {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out, nil
}

func (m *Memory) SeedCreditPackages(_ context.Context, pkgs []ledger.CreditPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pkgs {
		if _, exists := m.packages[p.ID]; !exists {
			cp := p
			m.packages[p.ID] = &cp
		}
	}
	return nil
}

func (m *Memory) CreditPackages(_ context.Context) ([]*ledger.CreditPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ledger.CreditPackage, 0, len(m.packages))
	for _, p := range m.packages {
		if !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// =============================================================================
// REPAIR PRIMITIVES
// =============================================================================

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for acc, txs := range m.transactions {
		for i, tx := range txs {
			if tx.ID == id {
				m.transactions[acc] = append(txs[:i], txs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *Memory) SetBalance(_ context.Context, id ledger.AccountID, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	acc.Balance = balance
	acc.UpdatedAt = time.Now().UTC()
	return nil
}
