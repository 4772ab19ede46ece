package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"financeplanner/internal/account"
	"financeplanner/internal/auth"
	"financeplanner/internal/authz"
	"financeplanner/internal/tenancy"
	"financeplanner/internal/tenant"
	"financeplanner/internal/transaction"
	"financeplanner/internal/user"
)

var accountCols = []string{"id", "tenant_id", "name", "account_type", "balance", "opening_balance", "created_at", "updated_at"}

type testHandlers struct {
	tenants      *TenantsHandler
	accounts     *AccountsHandler
	transactions *TransactionsHandler
}

func setupHandlerTest(t *testing.T) (*testHandlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := user.NewManager(user.NewDatastore(db))
	return &testHandlers{
		tenants:      NewTenantsHandler(tenancy.NewManager(db, users)),
		accounts:     NewAccountsHandler(account.NewManager(account.NewDatastore(db))),
		transactions: NewTransactionsHandler(transaction.NewManager(db)),
	}, mock
}

func actingAs(role tenant.Role) *authz.Context {
	return &authz.Context{
		User:   &user.User{ID: 1, AuthUserID: "auth|alice"},
		Tenant: &tenant.Tenant{ID: 10, Name: "Household"},
		Role:   role,
	}
}

// newRequest builds a request as RequireTenant would hand it to a handler.
func newRequest(method, target, body string, ac *authz.Context) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	if ac != nil {
		ctx := authz.WithUser(r.Context(), ac.User)
		r = r.WithContext(authz.WithContext(ctx, ac))
	}
	return r
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp auth.APIError
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error.Type
}

func TestAccountsHandler_Create(t *testing.T) {
	h, mock := setupHandlerTest(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(int64(1), int64(10), "Checking", "checking", "1000", "1000", now, now))

	req := newRequest(http.MethodPost, "/api/v1/accounts",
		`{"name":"Checking","account_type":"CHECKING","initial_balance":1000}`, actingAs(tenant.RoleMember))
	rec := httptest.NewRecorder()
	h.accounts.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(body["balance"]) != "1000.00" {
		t.Errorf("expected balance rendered as 1000.00, got %s", body["balance"])
	}
	if string(body["account_type"]) != `"checking"` {
		t.Errorf("unexpected account_type %s", body["account_type"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAccountsHandler_Create_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		role       tenant.Role
		body       string
		wantStatus int
		wantType   string
	}{
		{"viewer", tenant.RoleViewer, `{"name":"Checking","account_type":"checking"}`, http.StatusForbidden, "forbidden"},
		{"unknown type", tenant.RoleMember, `{"name":"Checking","account_type":"crypto"}`, http.StatusBadRequest, "validation_error"},
		{"negative opening", tenant.RoleMember, `{"name":"Loan","account_type":"loan","initial_balance":-5}`, http.StatusBadRequest, "validation_error"},
		{"malformed", tenant.RoleMember, `{"name":`, http.StatusBadRequest, "bad_request"},
		{"empty body", tenant.RoleMember, ``, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupHandlerTest(t)

			rec := httptest.NewRecorder()
			h.accounts.Create(rec, newRequest(http.MethodPost, "/api/v1/accounts", tt.body, actingAs(tt.role)))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := errorType(t, rec); got != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("no queries expected: %v", err)
			}
		})
	}
}

func TestAccountsHandler_Get_NotFound(t *testing.T) {
	h, mock := setupHandlerTest(t)

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(int64(99), int64(10)).
		WillReturnError(sql.ErrNoRows)

	req := newRequest(http.MethodGet, "/api/v1/accounts/99", "", actingAs(tenant.RoleViewer))
	req.SetPathValue("id", "99")
	rec := httptest.NewRecorder()
	h.accounts.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestAccountsHandler_Get_InvalidID(t *testing.T) {
	h, _ := setupHandlerTest(t)

	for _, id := range []string{"abc", "0", "-4"} {
		req := newRequest(http.MethodGet, "/api/v1/accounts/"+id, "", actingAs(tenant.RoleViewer))
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.accounts.Get(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected status 400, got %d", id, rec.Code)
		}
	}
}

func TestAccountsHandler_Update_NullName(t *testing.T) {
	h, mock := setupHandlerTest(t)

	req := newRequest(http.MethodPatch, "/api/v1/accounts/1", `{"name":null}`, actingAs(tenant.RoleMember))
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.accounts.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestAccountsHandler_Reconcile(t *testing.T) {
	h, mock := setupHandlerTest(t)

	mock.ExpectQuery(`SELECT .+ FROM accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "opening_balance", "total"}).
			AddRow("900.00", "1000.00", "-100.00"))

	req := newRequest(http.MethodGet, "/api/v1/accounts/1/reconcile", "", actingAs(tenant.RoleViewer))
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.accounts.Reconcile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(body["balanced"]) != "true" {
		t.Errorf("expected balanced account, got %s", body["balanced"])
	}
	if string(body["expected_balance"]) != "900.00" || string(body["difference"]) != "0.00" {
		t.Errorf("unexpected money fields: expected_balance=%s difference=%s", body["expected_balance"], body["difference"])
	}
	if string(body["account_id"]) != "1" {
		t.Errorf("expected account_id 1, got %s", body["account_id"])
	}
}

func TestTransactionsHandler_Create_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"account_id":1,"date":"2024-03-15","category":"Food"}`},
		{"missing date", `{"account_id":1,"amount":"-12.50","category":"Food"}`},
		{"bad date", `{"account_id":1,"amount":"-12.50","date":"15/03/2024","category":"Food"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupHandlerTest(t)

			rec := httptest.NewRecorder()
			h.transactions.Create(rec, newRequest(http.MethodPost, "/api/v1/transactions", tt.body, actingAs(tenant.RoleMember)))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			if got := errorType(t, rec); got != "validation_error" {
				t.Errorf("expected validation_error, got %q", got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("no queries expected: %v", err)
			}
		})
	}
}

func TestTransactionsHandler_Create(t *testing.T) {
	h, mock := setupHandlerTest(t)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "amount", "date", "category", "description", "merchant",
			"location", "tags", "der_category", "der_merchant", "created_at", "updated_at",
		}).AddRow(int64(7), int64(1), "-12.5", day, "Food", nil, "Corner Shop", nil, "{lunch}", nil, nil, day, day))
	mock.ExpectQuery(`UPDATE accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("987.50"))
	mock.ExpectCommit()

	body := `{"account_id":1,"amount":-12.5,"date":"2024-03-15","category":"Food","merchant":"Corner Shop","tags":["lunch"]}`
	rec := httptest.NewRecorder()
	h.transactions.Create(rec, newRequest(http.MethodPost, "/api/v1/transactions", body, actingAs(tenant.RoleMember)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(resp["amount"]) != "-12.50" {
		t.Errorf("expected amount -12.50, got %s", resp["amount"])
	}
	if string(resp["date"]) != `"2024-03-15"` {
		t.Errorf("expected date 2024-03-15, got %s", resp["date"])
	}
	if string(resp["description"]) != "null" {
		t.Errorf("expected null description, got %s", resp["description"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTransactionsHandler_CreateBatch(t *testing.T) {
	h, mock := setupHandlerTest(t)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "account_id", "amount", "date", "category", "description", "merchant",
		"location", "tags", "der_category", "der_merchant", "created_at", "updated_at",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(7), int64(1), "1500", day, "Salary", nil, nil, nil, "{}", nil, nil, day, day))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(8), int64(1), "-4.5", day, "Food", nil, nil, nil, "{}", nil, nil, day, day))
	mock.ExpectQuery(`UPDATE accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("2495.5"))
	mock.ExpectCommit()

	body := `{"account_id":1,"transactions":[
		{"amount":"1500","date":"2024-03-15","category":"Salary"},
		{"amount":-4.5,"date":"2024-03-15","category":"Food"}
	]}`
	rec := httptest.NewRecorder()
	h.transactions.CreateBatch(rec, newRequest(http.MethodPost, "/api/v1/transactions/batch", body, actingAs(tenant.RoleMember)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp batchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Transactions) != 2 {
		t.Errorf("expected 2 transactions, got count=%d len=%d", resp.Count, len(resp.Transactions))
	}
	if resp.TotalAmount != "1495.50" {
		t.Errorf("expected total_amount 1495.50, got %s", resp.TotalAmount)
	}
	if resp.AccountBalance != "2495.50" {
		t.Errorf("expected account_balance 2495.50, got %s", resp.AccountBalance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTransactionsHandler_CreateBatch_ItemError(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		message string
	}{
		{"missing amount", `{"date":"2024-03-16","category":"Food"}`, "transactions[1]: amount is required"},
		{"blank category", `{"amount":"-4.50","date":"2024-03-16","category":"  "}`, "transactions[1]: category must be between 1 and 100 characters"},
		{"huge exponent", `{"amount":1e20000000,"date":"2024-03-16","category":"Food"}`, "transactions[1]: amount is out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupHandlerTest(t)

			body := `{"account_id":1,"transactions":[
				{"amount":"10","date":"2024-03-15","category":"Salary"},
				` + tt.item + `
			]}`
			rec := httptest.NewRecorder()
			h.transactions.CreateBatch(rec, newRequest(http.MethodPost, "/api/v1/transactions/batch", body, actingAs(tenant.RoleMember)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			var resp auth.APIError
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Error.Message)
			}
			if resp.Error.Type != "validation_error" {
				t.Errorf("expected type validation_error, got %q", resp.Error.Type)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("no queries expected: %v", err)
			}
		})
	}
}

func TestTransactionsHandler_CreateBatch_Empty(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rec := httptest.NewRecorder()
	h.transactions.CreateBatch(rec, newRequest(http.MethodPost, "/api/v1/transactions/batch",
		`{"account_id":1,"transactions":[]}`, actingAs(tenant.RoleMember)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestTransactionsHandler_Delete_Viewer(t *testing.T) {
	h, mock := setupHandlerTest(t)

	req := newRequest(http.MethodDelete, "/api/v1/transactions/5", "", actingAs(tenant.RoleViewer))
	req.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	h.transactions.Delete(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestTenantsHandler_GetCurrent(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rec := httptest.NewRecorder()
	h.tenants.GetCurrent(rec, newRequest(http.MethodGet, "/api/v1/tenants/me", "", actingAs(tenant.RoleViewer)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got tenant.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != 10 || got.Name != "Household" {
		t.Errorf("unexpected tenant %+v", got)
	}
}

func TestTenantsHandler_ListMembers(t *testing.T) {
	h, mock := setupHandlerTest(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM tenant_memberships m\s+JOIN users u`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "user_id", "role", "created_at", "updated_at", "auth_user_id"}).
			AddRow(int64(1), int64(10), int64(1), "owner", now, now, "auth|alice").
			AddRow(int64(2), int64(10), int64(2), "viewer", now, now, "auth|bob"))

	rec := httptest.NewRecorder()
	h.tenants.ListMembers(rec, newRequest(http.MethodGet, "/api/v1/tenants/me/members", "", actingAs(tenant.RoleViewer)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var members []tenant.Member
	if err := json.NewDecoder(rec.Body).Decode(&members); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(members) != 2 || members[1].AuthUserID != "auth|bob" || members[1].Role != tenant.RoleViewer {
		t.Errorf("unexpected members %+v", members)
	}
}

func TestTenantsHandler_Invite_RequiresAdmin(t *testing.T) {
	h, mock := setupHandlerTest(t)

	rec := httptest.NewRecorder()
	h.tenants.Invite(rec, newRequest(http.MethodPost, "/api/v1/tenants/me/members",
		`{"auth_user_id":"auth|carol"}`, actingAs(tenant.RoleMember)))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestTenantsHandler_UpdateRole(t *testing.T) {
	h, mock := setupHandlerTest(t)
	now := time.Now()
	membershipCols := []string{"id", "tenant_id", "user_id", "role", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT .+ FROM tenant_memberships`).
		WithArgs(int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(4), int64(10), int64(2), "member", now, now))
	mock.ExpectQuery(`UPDATE tenant_memberships\s+SET role = \$3`).
		WithArgs(int64(10), int64(2), "admin").
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(4), int64(10), int64(2), "admin", now, now))

	req := newRequest(http.MethodPatch, "/api/v1/tenants/me/members/2/role", `{"role":" ADMIN "}`, actingAs(tenant.RoleOwner))
	req.SetPathValue("user_id", "2")
	rec := httptest.NewRecorder()
	h.tenants.UpdateRole(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got tenant.Membership
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Role != tenant.RoleAdmin {
		t.Errorf("expected role admin, got %q", got.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTenantsHandler_UpdateRole_Errors(t *testing.T) {
	tests := []struct {
		name     string
		role     tenant.Role
		body     string
		status   int
		errorTyp string
	}{
		{"invalid role", tenant.RoleOwner, `{"role":"root"}`, http.StatusBadRequest, "validation_error"},
		{"admin with invalid role", tenant.RoleAdmin, `{"role":"root"}`, http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupHandlerTest(t)

			req := newRequest(http.MethodPatch, "/api/v1/tenants/me/members/2/role", tt.body, actingAs(tt.role))
			req.SetPathValue("user_id", "2")
			rec := httptest.NewRecorder()
			h.tenants.UpdateRole(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if got := errorType(t, rec); got != tt.errorTyp {
				t.Errorf("expected type %q, got %q", tt.errorTyp, got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("no queries expected: %v", err)
			}
		})
	}
}

func TestTenantsHandler_RemoveMember_Self(t *testing.T) {
	h, mock := setupHandlerTest(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM tenant_memberships`).
		WithArgs(int64(10), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "user_id", "role", "created_at", "updated_at"}).
			AddRow(int64(3), int64(10), int64(1), "admin", now, now))

	req := newRequest(http.MethodDelete, "/api/v1/tenants/me/members/1", "", actingAs(tenant.RoleAdmin))
	req.SetPathValue("user_id", "1")
	rec := httptest.NewRecorder()
	h.tenants.RemoveMember(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTenantsHandler_RemoveMember(t *testing.T) {
	h, mock := setupHandlerTest(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM tenant_memberships`).
		WithArgs(int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "user_id", "role", "created_at", "updated_at"}).
			AddRow(int64(4), int64(10), int64(2), "member", now, now))
	mock.ExpectExec(`DELETE FROM tenant_memberships`).
		WithArgs(int64(10), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := newRequest(http.MethodDelete, "/api/v1/tenants/me/members/2", "", actingAs(tenant.RoleOwner))
	req.SetPathValue("user_id", "2")
	rec := httptest.NewRecorder()
	h.tenants.RemoveMember(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["removed_user_id"] != float64(2) {
		t.Errorf("unexpected response %v", body)
	}
}

func TestHandlers_MissingContext(t *testing.T) {
	h, _ := setupHandlerTest(t)

	rec := httptest.NewRecorder()
	h.accounts.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}
