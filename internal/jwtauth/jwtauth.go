// Package jwtauth verifies identity tokens issued by the external identity service.
package jwtauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"financeplanner/internal/apperr"
)

// Verification failures. All are Unauthorized except ErrInvalidTenant,
// which means the token is genuine but carries an unusable tenant id.
var (
	ErrInvalidToken   = apperr.New(apperr.Unauthorized, "invalid token")
	ErrMissingSubject = apperr.New(apperr.Unauthorized, "token missing user identifier")
	ErrMissingTenant  = apperr.New(apperr.Unauthorized, "token missing tenant identifier")
	ErrInvalidTenant  = apperr.New(apperr.BadRequest, "invalid tenant identifier")
)

// TenantClaim holds the raw tenant_id claim. The identity service encodes it
// as a string, but a bare JSON number is accepted too.
type TenantClaim string

func (t *TenantClaim) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = TenantClaim(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("tenant_id must be a string or number")
	}
	*t = TenantClaim(n.String())
	return nil
}

// Claims represents the identity token claims.
type Claims struct {
	jwt.RegisteredClaims
	Tenant TenantClaim `json:"tenant_id,omitempty"`
}

// AuthUserID returns the external user identifier (subject).
func (c *Claims) AuthUserID() string {
	return c.Subject
}

// HasTenant reports whether the token asserts a tenant.
func (c *Claims) HasTenant() bool {
	return strings.TrimSpace(string(c.Tenant)) != ""
}

// TenantID parses the tenant claim as a positive integer id.
func (c *Claims) TenantID() (int64, error) {
	raw := strings.TrimSpace(string(c.Tenant))
	if raw == "" {
		return 0, ErrMissingTenant
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTenant, raw)
	}
	return id, nil
}

// Config holds token verification configuration.
type Config struct {
	Secret []byte           // shared HS256 secret
	Leeway time.Duration    // tolerated clock skew on exp
	Now    func() time.Time // optional clock, defaults to time.Now
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a new token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &Verifier{
		secret: cfg.Secret,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify validates a tenant-scoped token: signature, algorithm, expiry,
// subject and tenant claims must all be present and valid.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims, err := v.VerifyIdentity(tokenString)
	if err != nil {
		return nil, err
	}

	if !claims.HasTenant() {
		return nil, ErrMissingTenant
	}

	return claims, nil
}

// VerifyIdentity validates a token without requiring a tenant claim.
func (v *Verifier) VerifyIdentity(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

// Sign issues a token with the verifier's secret and algorithm.
// Production tokens come from the identity service; this exists for local
// tooling and tests.
func (v *Verifier) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
