/*
bonus.go - Welcome bonus policy

PURPOSE:
  Grants a fixed one-time credit bonus to genuinely new accounts, and
  refuses repeat grants - including the delete-and-recreate trick,
  which the burned email registry defeats.

GRANT SEQUENCE:
  1. Burned email check: an email in the registry never gets a second
     bonus, whatever the current account's flags say.
  2. Check-and-set of the account's bonus flag, in the same exclusive
     scope as the credit, so two concurrent grants cannot both pass
     the flag check. Both steps live inside Store.GrantBonus.
  3. Credit with kind=bonus, tagged operation=welcome_bonus. Detection
     always keys on that tag, never on the description text.

IDEMPOTENCE:
  A second Grant for the same account returns (false, nil): already
  granted is a normal outcome, not an error.

ACCOUNT DELETION:
  RetireAccount burns the email BEFORE deleting the account row, so the
  eligibility tombstone survives the deletion even if the process dies
  between the two steps.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultBonusCredits is the welcome bonus grant size used when the
// configuration does not override it.
const DefaultBonusCredits = 100

// BonusPolicy implements the one-time welcome bonus.
type BonusPolicy struct {
	store  Store
	amount int64
}

// NewBonusPolicy creates the policy. amount <= 0 selects
// DefaultBonusCredits.
func NewBonusPolicy(store Store, amount int64) *BonusPolicy {
	if amount <= 0 {
		amount = DefaultBonusCredits
	}
	return &BonusPolicy{store: store, amount: amount}
}

// Amount returns the configured grant size.
func (p *BonusPolicy) Amount() int64 {
	return p.amount
}

// Grant issues the welcome bonus to the account if the email is still
// eligible. Returns (true, nil) when credits were granted and
// (false, nil) when the email is burned or the account already
// received its bonus.
func (p *BonusPolicy) Grant(ctx context.Context, id AccountID, email string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, fmt.Errorf("grant bonus: %w", &ValidationErrorDetail{
			Code: "missing_email", Message: "welcome bonus requires an email",
		})
	}

	tx := &Transaction{
		ID:          NewTransactionID(),
		AccountID:   id,
		Kind:        KindBonus,
		Amount:      p.amount,
		Description: "Welcome bonus",
		Operation:   OpWelcomeBonus,
		CreatedAt:   time.Now().UTC(),
	}
	return p.store.GrantBonus(ctx, id, email, tx)
}

// BurnEmail records that email has exhausted its bonus eligibility.
// Safe to call repeatedly; the registry keeps one entry per email.
func (p *BonusPolicy) BurnEmail(ctx context.Context, email string, bonusGranted bool) error {
	email = NormalizeEmail(email)
	if email == "" {
		return nil
	}
	return p.store.BurnEmail(ctx, &BurnedEmail{
		Email:        email,
		BonusGranted: bonusGranted,
		BurnedAt:     time.Now().UTC(),
	})
}

// RetireAccount is the account-deletion hook: it burns the account's
// email (carrying the current bonus flag), then deletes the account
// row, cascading its transactions.
func (p *BonusPolicy) RetireAccount(ctx context.Context, id AccountID) error {
	acc, err := p.store.Account(ctx, id)
	if err != nil {
		return err
	}
	if err := p.BurnEmail(ctx, acc.Email, acc.BonusGranted); err != nil {
		return err
	}
	return p.store.DeleteAccount(ctx, id)
}

// NormalizeEmail lowercases and trims an email for use as a registry
// key. Eligibility checks must not be case-sensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
