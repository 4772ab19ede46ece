package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"financeplanner/internal/apperr"
	"financeplanner/internal/auth"
	"financeplanner/internal/authz"
	"financeplanner/internal/user"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidID = apperr.New(apperr.BadRequest, "invalid id")
	errNoContext = errors.New("request reached a protected handler without an authorization context")
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	auth.WriteError(w, err)
}

// decodeJSON reads a single JSON value from the body. Errors already carrying
// a kind (bad dates, for instance) are returned unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.BadRequest, "request body is required")
		}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(apperr.BadRequest, "malformed JSON body", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// tenantContext returns the authorization context attached by RequireTenant.
func tenantContext(w http.ResponseWriter, r *http.Request) (*authz.Context, bool) {
	ac, ok := authz.FromContext(r.Context())
	if !ok {
		writeError(w, errNoContext)
	}
	return ac, ok
}

// currentUser returns the user attached by RequireIdentity.
func currentUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := authz.UserFromContext(r.Context())
	if !ok {
		writeError(w, errNoContext)
	}
	return u, ok
}

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// presentFields decodes an object body keeping raw values so PATCH handlers
// can tell an omitted field from an explicit null.
func presentFields(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, apperr.New(apperr.BadRequest, "request body must be a JSON object")
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// decodeField decodes a required field. Null is rejected.
func decodeField(raw json.RawMessage, name string, v any) error {
	if isNull(raw) {
		return apperr.Newf(apperr.Validation, "%s cannot be null", name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(apperr.Validation, "invalid "+name, err)
	}
	return nil
}
