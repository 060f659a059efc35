/*
handlers.go - HTTP API handlers for the credits ledger

PURPOSE:
  Exposes the ledger via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                    Create account (+ bonus hook)
    GET    /api/accounts/{id}               Account details
    DELETE /api/accounts/{id}               Burn email, delete account
    GET    /api/accounts/{id}/balance       Current balance
    GET    /api/accounts/{id}/transactions  History (capped at 50)
    POST   /api/accounts/{id}/debit         Charge a paid operation
    POST   /api/accounts/{id}/sufficient    Affordability check

  Billing:
    POST   /api/webhooks/payment            Confirmed-payment credit
    GET    /api/costs                       Operation cost catalog
    PUT    /api/costs/{operation}           Admin cost edit
    GET    /api/packages                    Credit packages

  Admin:
    POST   /api/admin/reconcile/missing-bonuses
    POST   /api/admin/reconcile/duplicate-bonuses
    POST   /api/admin/reconcile/burned-emails
    GET    /api/admin/reconcile/balances
    GET    /api/admin/accounts/{id}/transactions  Full history

ERROR HANDLING:
  Internal error kinds map to safe user messages; full detail is
  logged server-side only. Raw storage errors never reach the client.
  - 402: insufficient credits
  - 404: unknown account
  - 409: duplicate email
  - 503: unseeded operation cost ("pricing unavailable")
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/valutai/credits-engine/ledger"
)

// userHistoryCap bounds user-facing transaction listings. The admin
// surface is uncapped.
const userHistoryCap = 50

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   ledger.Store
	Ledger  *ledger.Service
	Bonus   *ledger.BonusPolicy
	Catalog *ledger.Catalog
	Auditor *ledger.Auditor
}

// NewHandler wires the domain services over one store.
func NewHandler(store ledger.Store, bonusCredits int64) *Handler {
	bonus := ledger.NewBonusPolicy(store, bonusCredits)
	return &Handler{
		Store:   store,
		Ledger:  ledger.NewService(store),
		Bonus:   bonus,
		Catalog: ledger.NewCatalog(store),
		Auditor: ledger.NewAuditor(store, bonus),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount is the account-creation hook: it creates the ledger
// row and synchronously runs the welcome bonus policy. When the bonus
// is refused the balance stays an explicit zero.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if ledger.NormalizeEmail(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx := r.Context()
	acc := &ledger.Account{
		ID:      ledger.NewAccountID(),
		Email:   req.Email,
		Balance: 0,
	}
	if err := h.Store.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		h.serverError(w, "create account", err)
		return
	}

	granted, err := h.Bonus.Grant(ctx, acc.ID, acc.Email)
	if err != nil {
		h.serverError(w, "grant welcome bonus", err)
		return
	}

	// Reload for the post-grant balance and flags.
	acc, err = h.Store.Account(ctx, acc.ID)
	if err != nil {
		h.serverError(w, "reload account", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateAccountResponse{
		Account:      toAccountDTO(acc),
		BonusGranted: granted,
	})
}

// GetAccount returns one account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Store.Account(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.accountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

// DeleteAccount is the account-deletion hook: burn the email first,
// then remove the row and its transactions.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.Bonus.RetireAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.accountError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the account's current balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Store.Account(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.accountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountID:    string(acc.ID),
		Balance:      acc.Balance,
		BonusGranted: acc.BonusGranted,
	})
}

// GetTransactions returns the account's history, newest first,
// capped at 50 entries for the user surface.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	limit := queryInt(r, "limit", userHistoryCap)
	if limit <= 0 || limit > userHistoryCap {
		limit = userHistoryCap
	}
	offset := queryInt(r, "offset", 0)

	txs, err := h.Ledger.History(r.Context(), id, limit, offset)
	if err != nil {
		h.accountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// AdminTransactions returns the full, uncapped history.
func (h *Handler) AdminTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	txs, err := h.Ledger.History(r.Context(), id, 0, 0)
	if err != nil {
		h.accountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// Debit charges the account for one paid operation. The caller (the
// feature handler) is responsible for rolling back its side effect
// when the response says the charge was refused.
func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Operation == "" {
		writeError(w, http.StatusBadRequest, "Operation is required")
		return
	}

	ctx := r.Context()
	op := ledger.Operation(req.Operation)

	cost, err := h.Catalog.Cost(ctx, op)
	if err != nil {
		if errors.Is(err, ledger.ErrOperationNotFound) {
			writeError(w, http.StatusServiceUnavailable, "Pricing unavailable")
			return
		}
		h.serverError(w, "look up cost", err)
		return
	}

	description := req.Description
	if description == "" {
		description = string(op)
	}

	charged, err := h.Ledger.Debit(ctx, id, cost, description, op, req.ResourceID)
	if err != nil {
		h.accountError(w, err)
		return
	}

	balance, err := h.Ledger.Balance(ctx, id)
	if err != nil {
		h.accountError(w, err)
		return
	}

	status := http.StatusOK
	if !charged {
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, DebitResponse{Charged: charged, Cost: cost, Balance: balance})
}

// Sufficiency reports whether the account can afford an operation.
func (h *Handler) Sufficiency(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req SufficiencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	op := ledger.Operation(req.Operation)

	cost, err := h.Catalog.Cost(ctx, op)
	if err != nil {
		if errors.Is(err, ledger.ErrOperationNotFound) {
			writeError(w, http.StatusServiceUnavailable, "Pricing unavailable")
			return
		}
		h.serverError(w, "look up cost", err)
		return
	}

	balance, err := h.Ledger.Balance(ctx, id)
	if err != nil {
		h.accountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SufficiencyResponse{
		Sufficient: balance >= cost,
		Cost:       cost,
		Balance:    balance,
	})
}

// PaymentWebhook credits an account after a confirmed payment.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || req.Credits <= 0 {
		writeError(w, http.StatusBadRequest, "account_id and a positive credits amount are required")
		return
	}

	balance, err := h.Ledger.Credit(r.Context(),
		ledger.AccountID(req.AccountID), req.Credits,
		"Credit package purchase", ledger.KindPurchase, "", req.PackageID)
	if err != nil {
		h.accountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PaymentWebhookResponse{Balance: balance})
}

// ListCosts returns the operation cost catalog.
func (h *Handler) ListCosts(w http.ResponseWriter, r *http.Request) {
	costs, err := h.Catalog.Operations(r.Context())
	if err != nil {
		h.serverError(w, "list costs", err)
		return
	}

	dtos := make([]OperationCostDTO, len(costs))
	for i, c := range costs {
		dtos[i] = OperationCostDTO{
			Operation:   string(c.Operation),
			Name:        c.Name,
			Description: c.Description,
			Cost:        c.Cost,
			Active:      c.Active,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetCost is the admin edit path for one catalog row.
func (h *Handler) SetCost(w http.ResponseWriter, r *http.Request) {
	op := ledger.Operation(chi.URLParam(r, "operation"))

	var req SetCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Cost < 0 {
		writeError(w, http.StatusBadRequest, "Cost must not be negative")
		return
	}

	if err := h.Catalog.SetCost(r.Context(), op, req.Name, req.Cost); err != nil {
		h.serverError(w, "set cost", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPackages returns the purchasable credit bundles.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.Catalog.Packages(r.Context())
	if err != nil {
		h.serverError(w, "list packages", err)
		return
	}

	dtos := make([]CreditPackageDTO, len(pkgs))
	for i, p := range pkgs {
		dtos[i] = CreditPackageDTO{
			ID:       p.ID,
			Name:     p.Name,
			Credits:  p.Credits,
			Price:    p.Price.StringFixed(2),
			Currency: p.Currency,
			Popular:  p.Popular,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// ReconcileMissingBonuses runs the missing-bonus scan.
func (h *Handler) ReconcileMissingBonuses(w http.ResponseWriter, r *http.Request) {
	report, err := h.Auditor.GrantMissingBonuses(r.Context())
	h.runScan(w, "missing-bonus scan", report, err)
}

// ReconcileDuplicateBonuses runs the duplicate-bonus scan.
func (h *Handler) ReconcileDuplicateBonuses(w http.ResponseWriter, r *http.Request) {
	report, err := h.Auditor.RemoveDuplicateBonuses(r.Context())
	h.runScan(w, "duplicate-bonus scan", report, err)
}

// ReconcileBurnedEmails runs the burned-email duplicate cleanup.
func (h *Handler) ReconcileBurnedEmails(w http.ResponseWriter, r *http.Request) {
	report, err := h.Auditor.CleanBurnedEmails(r.Context())
	h.runScan(w, "burned-email cleanup", report, err)
}

// ReconcileBalances runs the report-only balance verification.
func (h *Handler) ReconcileBalances(w http.ResponseWriter, r *http.Request) {
	report, err := h.Auditor.VerifyBalances(r.Context())
	h.runScan(w, "balance verification", report, err)
}

func (h *Handler) runScan(w http.ResponseWriter, name string, report *ledger.Report, err error) {
	if err != nil {
		h.serverError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

// accountError maps ledger errors on account-scoped paths.
func (h *Handler) accountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found")
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request")
	default:
		h.serverError(w, "ledger operation", err)
	}
}

// serverError logs the full error and returns a generic message.
// Internal detail stays out of responses.
func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("api: %s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, "Internal error")
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
