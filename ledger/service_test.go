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

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*ledger.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return ledger.NewService(mem), mem
}

func createAccount(t *testing.T, s ledger.Store, email string) *ledger.Account {
	t.Helper()
	acc := &ledger.Account{ID: ledger.NewAccountID(), Email: email, Balance: 0}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func fund(t *testing.T, svc *ledger.Service, id ledger.AccountID, amount int64) {
	t.Helper()
	_, err := svc.Credit(context.Background(), id, amount, "top up", ledger.KindPurchase, "", "")
	require.NoError(t, err)
}

// =============================================================================
// DEBIT TESTS
// =============================================================================

func TestDebit_Success(t *testing.T) {
	// GIVEN: An account holding 100 credits
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")
	fund(t, svc, acc.ID, 100)
	ctx := context.Background()

	// WHEN: Debiting 10 credits for a dataset upload
	charged, err := svc.Debit(ctx, acc.ID, 10, "dataset upload", ledger.OpDatasetUpload, "ds-1")

	// THEN: The charge succeeds and one usage transaction is recorded
	require.NoError(t, err)
	assert.True(t, charged)

	balance, err := svc.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), balance)

	txs, err := svc.History(ctx, acc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2) // purchase + usage, newest first
	assert.Equal(t, ledger.KindUsage, txs[0].Kind)
	assert.Equal(t, int64(-10), txs[0].Amount)
	assert.Equal(t, int64(90), txs[0].Balance)
	assert.Equal(t, ledger.OpDatasetUpload, txs[0].Operation)
	assert.Equal(t, "ds-1", txs[0].ResourceID)
}

func TestDebit_InsufficientFunds(t *testing.T) {
	// GIVEN: An account holding 5 credits
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")
	fund(t, svc, acc.ID, 5)
	ctx := context.Background()

	// WHEN: Debiting 50 credits
	charged, err := svc.Debit(ctx, acc.ID, 50, "model training", ledger.OpModelTraining, "")

	// THEN: The charge is refused without an error and without side effects
	require.NoError(t, err)
	assert.False(t, charged)

	balance, err := svc.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	txs, err := svc.History(ctx, acc.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1) // only the funding purchase
}

func TestDebit_InvalidAmount(t *testing.T) {
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")

	for _, amount := range []int64{0, -10} {
		_, err := svc.Debit(context.Background(), acc.ID, amount, "bad", "", "")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}
}

func TestDebit_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Debit(context.Background(), "missing", 10, "upload", ledger.OpDatasetUpload, "")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

// =============================================================================
// CREDIT TESTS
// =============================================================================

func TestCredit_ReturnsNewBalance(t *testing.T) {
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")
	ctx := context.Background()

	balance, err := svc.Credit(ctx, acc.ID, 500, "package purchase", ledger.KindPurchase, "", "growth")
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	balance, err = svc.Credit(ctx, acc.ID, 25, "training refund", ledger.KindRefund, ledger.OpModelTraining, "job-9")
	require.NoError(t, err)
	assert.Equal(t, int64(525), balance)
}

func TestCredit_RejectsUsageKind(t *testing.T) {
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")

	_, err := svc.Credit(context.Background(), acc.ID, 10, "nope", ledger.KindUsage, "", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidKind)
}

func TestCredit_InvalidAmount(t *testing.T) {
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")

	_, err := svc.Credit(context.Background(), acc.ID, 0, "zero", ledger.KindPurchase, "", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

// =============================================================================
// INVARIANT TESTS
// =============================================================================

func TestRunningBalanceInvariant(t *testing.T) {
	// GIVEN: A mixed sequence of credits and debits
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")
	ctx := context.Background()

	fund(t, svc, acc.ID, 100)
	_, err := svc.Debit(ctx, acc.ID, 25, "training", ledger.OpModelTraining, "")
	require.NoError(t, err)
	_, err = svc.Credit(ctx, acc.ID, 25, "refund", ledger.KindRefund, ledger.OpModelTraining, "")
	require.NoError(t, err)
	_, err = svc.Debit(ctx, acc.ID, 10, "upload", ledger.OpDatasetUpload, "")
	require.NoError(t, err)

	// THEN: Replaying the log oldest-first from zero reproduces every
	// snapshot and the stored balance
	txs, err := svc.History(ctx, acc.ID, 0, 0)
	require.NoError(t, err)

	var running int64
	for i := len(txs) - 1; i >= 0; i-- {
		running += txs[i].Amount
		assert.Equal(t, running, txs[i].Balance, "snapshot mismatch at index %d", i)
	}

	balance, err := svc.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, running, balance)
}

func TestConcurrentDebits_ExactlyOneSucceeds(t *testing.T) {
	// GIVEN: An account with balance 10 and two concurrent debits of 6
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")
	fund(t, svc, acc.ID, 10)
	ctx := context.Background()

	results := make([]bool, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Debit(ctx, acc.ID, 6, "prediction", ledger.OpPrediction, "")
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// THEN: Exactly one succeeded, balance is 4, one usage transaction
	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	balance, err := svc.Balance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance)

	usage := 0
	txs, err := svc.History(ctx, acc.ID, 0, 0)
	require.NoError(t, err)
	for _, tx := range txs {
		if tx.Kind == ledger.KindUsage {
			usage++
		}
	}
	assert.Equal(t, 1, usage)
}

func TestHistory_LimitAndOffset(t *testing.T) {
	svc, mem := newTestService(t)
	acc := createAccount(t, mem, "a@example.com")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		fund(t, svc, acc.ID, 10)
	}

	page, err := svc.History(ctx, acc.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := svc.History(ctx, acc.ID, 0, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
