package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valutai/credits-engine/ledger"
	"github.com/valutai/credits-engine/ledger/store"
)

func newTestAuditor(t *testing.T) (*ledger.Auditor, *ledger.BonusPolicy, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	bonus := ledger.NewBonusPolicy(mem, 100)
	return ledger.NewAuditor(mem, bonus), bonus, mem
}

// =============================================================================
// MISSING BONUS SCAN
// =============================================================================

func TestMissingBonusScan_GrantsAndReports(t *testing.T) {
	// GIVEN: One account that never got its bonus, one that did, and
	// one with a burned email
	auditor, bonus, mem := newTestAuditor(t)
	ctx := context.Background()

	missing := createAccount(t, mem, "missing@example.com")

	granted := createAccount(t, mem, "granted@example.com")
	ok, err := bonus.Grant(ctx, granted.ID, granted.Email)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, bonus.BurnEmail(ctx, "burned@example.com", true))
	burned := createAccount(t, mem, "burned@example.com")

	// WHEN: Running the scan
	report, err := auditor.GrantMissingBonuses(ctx)

	// THEN: Only the missing account is fixed
	require.NoError(t, err)
	assert.Equal(t, 3, report.Examined)
	assert.Equal(t, 1, report.Fixed)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, missing.ID, report.Issues[0].AccountID)

	acc, err := mem.Account(ctx, missing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.Balance)

	acc, err = mem.Account(ctx, burned.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)

	// AND: A second run finds nothing to do
	report, err = auditor.GrantMissingBonuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)
	assert.Empty(t, report.Issues)
}

func TestMissingBonusScan_EmptyLedger(t *testing.T) {
	auditor, _, _ := newTestAuditor(t)

	report, err := auditor.GrantMissingBonuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Examined)
	assert.Equal(t, 0, report.Fixed)
}

// =============================================================================
// DUPLICATE BONUS SCAN
// =============================================================================

func TestDuplicateBonusScan_KeepsEarliestAndRecomputes(t *testing.T) {
	// GIVEN: An account with a legitimate bonus, a duplicate bonus, and
	// a usage transaction
	auditor, bonus, mem := newTestAuditor(t)
	svc := ledger.NewService(mem)
	ctx := context.Background()

	acc := createAccount(t, mem, "dup@example.com")
	ok, err := bonus.Grant(ctx, acc.ID, acc.Email)
	require.NoError(t, err)
	require.True(t, ok)

	// Duplicate grant slipped in through a buggy path.
	_, err = svc.Credit(ctx, acc.ID, 100, "Welcome bonus", ledger.KindBonus, ledger.OpWelcomeBonus, "")
	require.NoError(t, err)

	charged, err := svc.Debit(ctx, acc.ID, 10, "upload", ledger.OpDatasetUpload, "")
	require.NoError(t, err)
	require.True(t, charged)
	// Balance now 190; with the duplicate removed it should be 90.

	// WHEN: Running the scan
	report, err := auditor.RemoveDuplicateBonuses(ctx)

	// THEN: The later bonus is gone and the balance is recomputed from
	// the surviving transactions
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fixed)

	bonuses, err := mem.BonusTransactions(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, bonuses, 1)

	reloaded, err := mem.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), reloaded.Balance)

	// AND: Re-running changes nothing
	report, err = auditor.RemoveDuplicateBonuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)

	reloaded, err = mem.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), reloaded.Balance)
}

// =============================================================================
// BURNED EMAIL CLEANUP
// =============================================================================

func TestBurnedEmailCleanup_KeepsNewest(t *testing.T) {
	// GIVEN: Three registry entries for one email and one for another
	auditor, _, mem := newTestAuditor(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		mem.InjectBurnedDuplicate(&ledger.BurnedEmail{
			Email:        "dup@example.com",
			BonusGranted: true,
			BurnedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}
	mem.InjectBurnedDuplicate(&ledger.BurnedEmail{
		Email:        "single@example.com",
		BonusGranted: true,
		BurnedAt:     base,
	})

	// WHEN: Running the cleanup
	report, err := auditor.CleanBurnedEmails(ctx)

	// THEN: Only the newest duplicate entry survives
	require.NoError(t, err)
	assert.Equal(t, 4, report.Examined)
	assert.Equal(t, 2, report.Fixed)

	entries, err := mem.BurnedEmails(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dup@example.com", entries[0].Email)
	assert.Equal(t, base.Add(2*time.Minute), entries[0].BurnedAt)

	// AND: A second run is a no-op
	report, err = auditor.CleanBurnedEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)
}

// =============================================================================
// BALANCE VERIFICATION
// =============================================================================

func TestVerifyBalances_ReportsDivergenceWithoutFixing(t *testing.T) {
	// GIVEN: One healthy account and one with a corrupted stored balance
	auditor, bonus, mem := newTestAuditor(t)
	ctx := context.Background()

	healthy := createAccount(t, mem, "ok@example.com")
	ok, err := bonus.Grant(ctx, healthy.ID, healthy.Email)
	require.NoError(t, err)
	require.True(t, ok)

	drifted := createAccount(t, mem, "drift@example.com")
	ok, err = bonus.Grant(ctx, drifted.ID, drifted.Email)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mem.SetBalance(ctx, drifted.ID, 77))

	// WHEN: Verifying
	report, err := auditor.VerifyBalances(ctx)

	// THEN: Only the drifted account is reported, and nothing changed
	require.NoError(t, err)
	assert.Equal(t, 2, report.Examined)
	assert.Equal(t, 0, report.Fixed)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, drifted.ID, report.Issues[0].AccountID)
	assert.Equal(t, int64(77), report.Issues[0].Stored)
	assert.Equal(t, int64(100), report.Issues[0].Computed)

	reloaded, err := mem.Account(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(77), reloaded.Balance) // untouched
}
