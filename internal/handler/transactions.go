package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financeplanner/internal/apperr"
	"financeplanner/internal/transaction"
)

// TransactionsHandler serves the transaction half of the ledger.
type TransactionsHandler struct {
	manager *transaction.Manager
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(manager *transaction.Manager) *TransactionsHandler {
	return &TransactionsHandler{manager: manager}
}

type transactionResponse struct {
	ID          int64            `json:"id"`
	AccountID   int64            `json:"account_id"`
	Amount      json.Number      `json:"amount"`
	Date        transaction.Date `json:"date"`
	Category    string           `json:"category"`
	Description *string          `json:"description"`
	Merchant    *string          `json:"merchant"`
	Location    *string          `json:"location"`
	Tags        []string         `json:"tags"`
	DerCategory *string          `json:"der_category"`
	DerMerchant *string          `json:"der_merchant"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toTransactionResponse(t *transaction.Transaction) transactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      money(t.Amount),
		Date:        t.Date,
		Category:    t.Category,
		Description: t.Description,
		Merchant:    t.Merchant,
		Location:    t.Location,
		Tags:        tags,
		DerCategory: t.DerCategory,
		DerMerchant: t.DerMerchant,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTransactionResponses(ts []*transaction.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(ts))
	for i, t := range ts {
		out[i] = toTransactionResponse(t)
	}
	return out
}

type transactionRequest struct {
	AccountID   int64             `json:"account_id"`
	Amount      *decimal.Decimal  `json:"amount"`
	Date        *transaction.Date `json:"date"`
	Category    string            `json:"category"`
	Description *string           `json:"description"`
	Merchant    *string           `json:"merchant"`
	Location    *string           `json:"location"`
	Tags        []string          `json:"tags"`
	DerCategory *string           `json:"der_category"`
	DerMerchant *string           `json:"der_merchant"`
}

func (req *transactionRequest) input() (transaction.CreateInput, error) {
	if req.Amount == nil {
		return transaction.CreateInput{}, apperr.New(apperr.Validation, "amount is required")
	}
	if req.Date == nil {
		return transaction.CreateInput{}, apperr.New(apperr.Validation, "date is required")
	}
	return transaction.CreateInput{
		AccountID:   req.AccountID,
		Amount:      *req.Amount,
		Date:        *req.Date,
		Category:    req.Category,
		Description: req.Description,
		Merchant:    req.Merchant,
		Location:    req.Location,
		Tags:        req.Tags,
		DerCategory: req.DerCategory,
		DerMerchant: req.DerMerchant,
	}, nil
}

type batchRequest struct {
	AccountID    int64                `json:"account_id"`
	Transactions []transactionRequest `json:"transactions"`
}

type batchResponse struct {
	Transactions   []transactionResponse `json:"transactions"`
	AccountBalance json.Number           `json:"account_balance"`
	TotalAmount    json.Number           `json:"total_amount"`
	Count          int                   `json:"count"`
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
}

// Create handles POST /api/v1/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.manager.Create(r.Context(), ac, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

// CreateBatch handles POST /api/v1/transactions/batch
func (h *TransactionsHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := transaction.BatchInput{
		AccountID: req.AccountID,
		Items:     make([]transaction.CreateInput, len(req.Transactions)),
	}
	for i := range req.Transactions {
		item, err := req.Transactions[i].input()
		if err != nil {
			writeError(w, apperr.Newf(apperr.KindOf(err), "transactions[%d]: %s", i, apperr.PublicMessage(err)))
			return
		}
		in.Items[i] = item
	}

	result, err := h.manager.CreateBatch(r.Context(), ac, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, batchResponse{
		Transactions:   toTransactionResponses(result.Transactions),
		AccountBalance: money(result.AccountBalance),
		TotalAmount:    money(result.TotalAmount),
		Count:          result.Count,
	})
}

// List handles GET /api/v1/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.manager.List(r.Context(), ac, f)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: toTransactionResponses(page.Transactions),
		Total:        page.Total,
	})
}

// Get handles GET /api/v1/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.manager.Get(r.Context(), ac, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// Update handles PATCH /api/v1/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	p, err := parsePatch(fields)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.manager.Update(r.Context(), ac, id, p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// Delete handles DELETE /api/v1/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// parsePatch maps a PATCH body onto a transaction.Patch. Omitted fields stay
// untouched; null clears nullable fields and is rejected for required ones.
func parsePatch(fields map[string]json.RawMessage) (transaction.Patch, error) {
	var p transaction.Patch

	if raw, ok := fields["amount"]; ok {
		var amount decimal.Decimal
		if err := decodeField(raw, "amount", &amount); err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if raw, ok := fields["date"]; ok {
		var date transaction.Date
		if err := decodeField(raw, "date", &date); err != nil {
			return p, err
		}
		p.Date = &date
	}
	if raw, ok := fields["category"]; ok {
		var category string
		if err := decodeField(raw, "category", &category); err != nil {
			return p, err
		}
		p.Category = &category
	}
	if raw, ok := fields["tags"]; ok {
		tags := []string{}
		if !isNull(raw) {
			if err := decodeField(raw, "tags", &tags); err != nil {
				return p, err
			}
		}
		p.Tags = &tags
	}

	nullable := []struct {
		name string
		dst  *transaction.NullableString
	}{
		{"description", &p.Description},
		{"merchant", &p.Merchant},
		{"location", &p.Location},
		{"der_category", &p.DerCategory},
		{"der_merchant", &p.DerMerchant},
	}
	for _, n := range nullable {
		raw, ok := fields[n.name]
		if !ok {
			continue
		}
		n.dst.Set = true
		if isNull(raw) {
			continue
		}
		var s string
		if err := decodeField(raw, n.name, &s); err != nil {
			return p, err
		}
		n.dst.Value = &s
	}

	return p, nil
}

// parseFilter reads listing filters from the query string. Tags are
// comma-separated and match when any one is present.
func parseFilter(q url.Values) (transaction.Filter, error) {
	var f transaction.Filter

	if v := q.Get("account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, apperr.New(apperr.BadRequest, "invalid account_id")
		}
		f.AccountID = &id
	}
	for _, d := range []struct {
		key string
		dst **transaction.Date
	}{
		{"start_date", &f.StartDate},
		{"end_date", &f.EndDate},
	} {
		if v := q.Get(d.key); v != "" {
			date, err := transaction.ParseDate(v)
			if err != nil {
				return f, err
			}
			*d.dst = &date
		}
	}
	for _, s := range []struct {
		key string
		dst **string
	}{
		{"category", &f.Category},
		{"merchant", &f.Merchant},
		{"der_category", &f.DerCategory},
		{"der_merchant", &f.DerMerchant},
	} {
		if v := strings.TrimSpace(q.Get(s.key)); v != "" {
			*s.dst = &v
		}
	}
	if v := q.Get("tags"); v != "" {
		f.Tags = strings.Split(v, ",")
	}

	var err error
	if f.Limit, err = queryInt(q, "limit", 1); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(q, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

// queryInt parses an optional integer parameter no smaller than min.
// An absent parameter yields zero.
func queryInt(q url.Values, key string, min int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, apperr.Newf(apperr.Validation, "%s must be an integer >= %d", key, min)
	}
	return n, nil
}
