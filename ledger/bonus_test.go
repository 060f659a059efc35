package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valutai/credits-engine/ledger"
	"github.com/valutai/credits-engine/ledger/store"
)

func newTestBonus(t *testing.T, amount int64) (*ledger.BonusPolicy, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return ledger.NewBonusPolicy(mem, amount), mem
}

// =============================================================================
// GRANT TESTS
// =============================================================================

func TestGrant_NewAccount(t *testing.T) {
	// GIVEN: A fresh account
	bonus, mem := newTestBonus(t, 100)
	acc := createAccount(t, mem, "x@example.com")
	ctx := context.Background()

	// WHEN: Granting the welcome bonus
	granted, err := bonus.Grant(ctx, acc.ID, acc.Email)

	// THEN: One bonus transaction exists with the full snapshot
	require.NoError(t, err)
	assert.True(t, granted)

	reloaded, err := mem.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reloaded.Balance)
	assert.True(t, reloaded.BonusGranted)
	assert.Equal(t, []string{"x@example.com"}, reloaded.BonusEmails)

	txs, err := mem.Transactions(ctx, acc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.KindBonus, txs[0].Kind)
	assert.Equal(t, ledger.OpWelcomeBonus, txs[0].Operation)
	assert.Equal(t, int64(100), txs[0].Amount)
	assert.Equal(t, int64(100), txs[0].Balance)
}

func TestGrant_Idempotent(t *testing.T) {
	// GIVEN: An account that already received its bonus
	bonus, mem := newTestBonus(t, 100)
	acc := createAccount(t, mem, "x@example.com")
	ctx := context.Background()

	granted, err := bonus.Grant(ctx, acc.ID, acc.Email)
	require.NoError(t, err)
	require.True(t, granted)

	// WHEN: Granting again
	granted, err = bonus.Grant(ctx, acc.ID, acc.Email)

	// THEN: Refused, balance unchanged, still one transaction
	require.NoError(t, err)
	assert.False(t, granted)

	reloaded, err := mem.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reloaded.Balance)

	txs, err := mem.Transactions(ctx, acc.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestGrant_BurnedEmail(t *testing.T) {
	// GIVEN: An email already in the burned registry
	bonus, mem := newTestBonus(t, 100)
	require.NoError(t, bonus.BurnEmail(context.Background(), "x@example.com", true))
	acc := createAccount(t, mem, "x@example.com")

	// WHEN: A new account with that email asks for the bonus
	granted, err := bonus.Grant(context.Background(), acc.ID, acc.Email)

	// THEN: Refused; the balance stays zero
	require.NoError(t, err)
	assert.False(t, granted)

	reloaded, err := mem.Account(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.Balance)
	assert.False(t, reloaded.BonusGranted)
}

func TestGrant_EmailCaseInsensitive(t *testing.T) {
	bonus, mem := newTestBonus(t, 100)
	require.NoError(t, bonus.BurnEmail(context.Background(), "X@Example.COM", true))
	acc := createAccount(t, mem, "x@example.com")

	granted, err := bonus.Grant(context.Background(), acc.ID, "x@example.com")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestGrant_Concurrent_GrantsOnce(t *testing.T) {
	// GIVEN: Two concurrent grant attempts for the same account
	bonus, mem := newTestBonus(t, 100)
	acc := createAccount(t, mem, "x@example.com")
	ctx := context.Background()

	results := make([]bool, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = bonus.Grant(ctx, acc.ID, acc.Email)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// THEN: Exactly one grant went through
	granted := 0
	for _, ok := range results {
		if ok {
			granted++
		}
	}
	assert.Equal(t, 1, granted)

	reloaded, err := mem.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reloaded.Balance)
}

func TestGrant_DefaultAmount(t *testing.T) {
	bonus, mem := newTestBonus(t, 0) // 0 selects the default
	acc := createAccount(t, mem, "x@example.com")

	granted, err := bonus.Grant(context.Background(), acc.ID, acc.Email)
	require.NoError(t, err)
	require.True(t, granted)

	reloaded, err := mem.Account(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(ledger.DefaultBonusCredits), reloaded.Balance)
}

// =============================================================================
// DELETE / RE-REGISTER TESTS
// =============================================================================

func TestRetireAccount_BurnsEligibility(t *testing.T) {
	// GIVEN: Account A received the bonus and was then deleted
	bonus, mem := newTestBonus(t, 100)
	ctx := context.Background()
	a := createAccount(t, mem, "x@example.com")
	granted, err := bonus.Grant(ctx, a.ID, a.Email)
	require.NoError(t, err)
	require.True(t, granted)

	require.NoError(t, bonus.RetireAccount(ctx, a.ID))
	_, err = mem.Account(ctx, a.ID)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// WHEN: Account B re-registers with the same email
	b := createAccount(t, mem, "x@example.com")
	granted, err = bonus.Grant(ctx, b.ID, b.Email)

	// THEN: No second bonus; B stays at zero
	require.NoError(t, err)
	assert.False(t, granted)

	reloaded, err := mem.Account(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.Balance)
}

func TestBurnEmail_Upserts(t *testing.T) {
	bonus, mem := newTestBonus(t, 100)
	ctx := context.Background()

	require.NoError(t, bonus.BurnEmail(ctx, "x@example.com", false))
	require.NoError(t, bonus.BurnEmail(ctx, "x@example.com", true))

	entries, err := mem.BurnedEmails(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].BonusGranted)
}
