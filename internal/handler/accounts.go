package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"financeplanner/internal/account"
)

// AccountsHandler serves the account half of the ledger.
type AccountsHandler struct {
	manager *account.Manager
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(manager *account.Manager) *AccountsHandler {
	return &AccountsHandler{manager: manager}
}

type accountResponse struct {
	ID             int64        `json:"id"`
	TenantID       int64        `json:"tenant_id"`
	Name           string       `json:"name"`
	AccountType    account.Type `json:"account_type"`
	Balance        json.Number  `json:"balance"`
	OpeningBalance json.Number  `json:"opening_balance"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Name:           a.Name,
		AccountType:    a.Type,
		Balance:        money(a.Balance),
		OpeningBalance: money(a.OpeningBalance),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type accountListResponse struct {
	Accounts []accountResponse `json:"accounts"`
	Total    int               `json:"total"`
}

type reconciliationResponse struct {
	AccountID        int64       `json:"account_id"`
	Balance          json.Number `json:"balance"`
	OpeningBalance   json.Number `json:"opening_balance"`
	TransactionTotal json.Number `json:"transaction_total"`
	ExpectedBalance  json.Number `json:"expected_balance"`
	Difference       json.Number `json:"difference"`
	Balanced         bool        `json:"balanced"`
}

type createAccountRequest struct {
	Name           string           `json:"name"`
	AccountType    string           `json:"account_type"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
}

// Create handles POST /api/v1/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	typ, err := account.ParseType(req.AccountType)
	if err != nil {
		writeError(w, err)
		return
	}
	in := account.CreateInput{Name: req.Name, Type: typ}
	if req.InitialBalance != nil {
		in.InitialBalance = *req.InitialBalance
	}

	a, err := h.manager.Create(r.Context(), ac, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

// List handles GET /api/v1/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	accounts, err := h.manager.List(r.Context(), ac)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		response[i] = toAccountResponse(a)
	}

	writeJSON(w, http.StatusOK, accountListResponse{Accounts: response, Total: len(response)})
}

// Get handles GET /api/v1/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.manager.Get(r.Context(), ac, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

// Update handles PATCH /api/v1/accounts/{id}
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	fields, err := presentFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in account.UpdateInput
	if raw, ok := fields["name"]; ok {
		var name string
		if err := decodeField(raw, "name", &name); err != nil {
			writeError(w, err)
			return
		}
		in.Name = &name
	}
	if raw, ok := fields["account_type"]; ok {
		var s string
		if err := decodeField(raw, "account_type", &s); err != nil {
			writeError(w, err)
			return
		}
		typ, err := account.ParseType(s)
		if err != nil {
			writeError(w, err)
			return
		}
		in.Type = &typ
	}

	a, err := h.manager.Update(r.Context(), ac, id, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

// Delete handles DELETE /api/v1/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.manager.Delete(r.Context(), ac, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles GET /api/v1/accounts/{id}/reconcile
func (h *AccountsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.manager.Reconcile(r.Context(), ac, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reconciliationResponse{
		AccountID:        rec.AccountID,
		Balance:          money(rec.Balance),
		OpeningBalance:   money(rec.OpeningBalance),
		TransactionTotal: money(rec.TransactionTotal),
		ExpectedBalance:  money(rec.Expected),
		Difference:       money(rec.Difference),
		Balanced:         rec.Balanced,
	})
}
