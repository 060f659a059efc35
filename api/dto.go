/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.
*/
package api

import (
	"time"

	"github.com/valutai/credits-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Balance      int64    `json:"balance"`
	BonusGranted bool     `json:"bonus_granted"`
	BonusEmails  []string `json:"bonus_emails,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// CreateAccountRequest is the account-creation hook payload.
type CreateAccountRequest struct {
	Email string `json:"email"`
}

// CreateAccountResponse reports whether the welcome bonus was granted.
type CreateAccountResponse struct {
	Account      AccountDTO `json:"account"`
	BonusGranted bool       `json:"bonus_granted"`
}

// BalanceDTO reports an account's current balance.
type BalanceDTO struct {
	AccountID    string `json:"account_id"`
	Balance      int64  `json:"balance"`
	BonusGranted bool   `json:"bonus_granted"`
}

// TransactionDTO represents one ledger entry.
type TransactionDTO struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	Balance     int64  `json:"balance"`
	Description string `json:"description"`
	Operation   string `json:"operation,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// DebitRequest asks to charge the account for one paid operation.
type DebitRequest struct {
	Operation   string `json:"operation"`
	ResourceID  string `json:"resource_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// DebitResponse reports the outcome of a debit.
type DebitResponse struct {
	Charged bool  `json:"charged"`
	Cost    int64 `json:"cost"`
	Balance int64 `json:"balance"`
}

// SufficiencyRequest asks whether the account can afford an operation.
type SufficiencyRequest struct {
	Operation string `json:"operation"`
}

// SufficiencyResponse is the answer.
type SufficiencyResponse struct {
	Sufficient bool  `json:"sufficient"`
	Cost       int64 `json:"cost"`
	Balance    int64 `json:"balance"`
}

// PaymentWebhookRequest is the confirmed-payment callback payload.
type PaymentWebhookRequest struct {
	AccountID string `json:"account_id"`
	PackageID string `json:"package_id"`
	Credits   int64  `json:"credits"`
}

// PaymentWebhookResponse acknowledges the credit.
type PaymentWebhookResponse struct {
	Balance int64 `json:"balance"`
}

// OperationCostDTO represents one catalog row.
type OperationCostDTO struct {
	Operation   string `json:"operation"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cost        int64  `json:"cost"`
	Active      bool   `json:"active"`
}

// SetCostRequest is the admin cost edit payload.
type SetCostRequest struct {
	Name string `json:"name,omitempty"`
	Cost int64  `json:"cost"`
}

// CreditPackageDTO represents one purchasable bundle.
type CreditPackageDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Credits  int64  `json:"credits"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Popular  bool   `json:"popular"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAccountDTO(acc *ledger.Account) AccountDTO {
	return AccountDTO{
		ID:           string(acc.ID),
		Email:        acc.Email,
		Balance:      acc.Balance,
		BonusGranted: acc.BonusGranted,
		BonusEmails:  acc.BonusEmails,
		CreatedAt:    acc.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []*ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			ID:          string(tx.ID),
			AccountID:   string(tx.AccountID),
			Kind:        string(tx.Kind),
			Amount:      tx.Amount,
			Balance:     tx.Balance,
			Description: tx.Description,
			Operation:   string(tx.Operation),
			ResourceID:  tx.ResourceID,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339Nano),
		}
	}
	return dtos
}
