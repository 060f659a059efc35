/*
catalog.go - Operation cost catalog and credit packages

PURPOSE:
  Maps paid operations to their credit prices and lists the purchasable
  credit bundles. Both catalogs are read-mostly: seeded once at
  startup, editable only through admin tooling.

PRICING FAILURES:
  An unseeded operation is an internal misconfiguration. Cost returns
  ErrOperationNotFound and callers surface "pricing unavailable" (a
  503), never a hardcoded fallback price.

SEEDING:
  SeedDefaults is upsert-if-absent: safe to run on every startup, and
  it never overwrites a cost an admin has edited.
*/
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Catalog reads operation costs and credit packages.
type Catalog struct {
	store Store
}

// NewCatalog creates a catalog over store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// DefaultOperationCosts returns the seed catalog.
// dataset_upload's 10-credit price is load-bearing: the billing flow
// and its tests assume it.
func DefaultOperationCosts() []OperationCost {
	return []OperationCost{
		{Operation: OpDatasetUpload, Name: "Dataset upload", Description: "Upload and validate a historical quotes dataset", Cost: 10, Active: true},
		{Operation: OpModelTraining, Name: "Model training", Description: "Train a scoring model on an uploaded dataset", Cost: 25, Active: true},
		{Operation: OpPrediction, Name: "Prediction", Description: "Score a new quote against a trained model", Cost: 5, Active: true},
		{Operation: OpReportGeneration, Name: "Report generation", Description: "Generate a results report", Cost: 15, Active: true},
	}
}

// DefaultCreditPackages returns the seed bundles consumed by the
// payment collaborator.
func DefaultCreditPackages() []CreditPackage {
	return []CreditPackage{
		{ID: "starter", Name: "Starter", Credits: 100, Price: decimal.RequireFromString("19.90"), Currency: "EUR", SortOrder: 1, Active: true},
		{ID: "growth", Name: "Growth", Credits: 500, Price: decimal.RequireFromString("79.90"), Currency: "EUR", Popular: true, SortOrder: 2, Active: true},
		{ID: "scale", Name: "Scale", Credits: 2000, Price: decimal.RequireFromString("249.90"), Currency: "EUR", SortOrder: 3, Active: true},
	}
}

// SeedDefaults idempotently seeds both catalogs.
func (c *Catalog) SeedDefaults(ctx context.Context) error {
	if err := c.store.SeedOperationCosts(ctx, DefaultOperationCosts()); err != nil {
		return err
	}
	return c.store.SeedCreditPackages(ctx, DefaultCreditPackages())
}

// Cost returns the credit price of op. Inactive or unseeded operations
// fail with ErrOperationNotFound.
func (c *Catalog) Cost(ctx context.Context, op Operation) (int64, error) {
	row, err := c.store.OperationCost(ctx, op)
	if err != nil {
		return 0, err
	}
	if !row.Active {
		return 0, ErrOperationNotFound
	}
	return row.Cost, nil
}

// HasSufficientBalance reports whether the account can afford op.
func (c *Catalog) HasSufficientBalance(ctx context.Context, id AccountID, op Operation) (bool, error) {
	cost, err := c.Cost(ctx, op)
	if err != nil {
		return false, err
	}
	acc, err := c.store.Account(ctx, id)
	if err != nil {
		return false, err
	}
	return acc.Balance >= cost, nil
}

// SetCost is the admin edit path: it overwrites (or creates) the
// catalog row for op.
func (c *Catalog) SetCost(ctx context.Context, op Operation, name string, cost int64) error {
	if cost < 0 {
		return ErrInvalidAmount
	}
	existing, err := c.store.OperationCost(ctx, op)
	if err == nil {
		existing.Cost = cost
		if name != "" {
			existing.Name = name
		}
		return c.store.UpsertOperationCost(ctx, existing)
	}
	if !errors.Is(err, ErrOperationNotFound) {
		return err
	}
	if name == "" {
		name = string(op)
	}
	return c.store.UpsertOperationCost(ctx, &OperationCost{
		Operation: op,
		Name:      name,
		Cost:      cost,
		Active:    true,
	})
}

// Operations returns every catalog row.
func (c *Catalog) Operations(ctx context.Context) ([]*OperationCost, error) {
	return c.store.OperationCosts(ctx)
}

// Packages returns the active credit packages in sort order.
func (c *Catalog) Packages(ctx context.Context) ([]*CreditPackage, error) {
	return c.store.CreditPackages(ctx)
}
