// Package middleware provides the HTTP middleware chain for the finance API.
package middleware

import (
	"context"
	"net/http"

	"financeplanner/internal/auth"
	"financeplanner/internal/authz"
	"financeplanner/internal/user"
)

// Authenticator turns a bearer token into a caller identity.
// *authz.Builder satisfies it.
type Authenticator interface {
	Build(ctx context.Context, token string) (*authz.Context, error)
	Identify(ctx context.Context, token string) (*user.User, error)
}

// RequireTenant authenticates a tenant-scoped request. The token must carry a
// tenant claim and the caller must be a member of that tenant; on success the
// authorization context is attached to the request.
//
// Error responses:
//   - 401: missing or malformed Authorization header, bad or expired token
//   - 400: malformed tenant claim or identity
//   - 404: tenant does not exist
//   - 403: caller is not a member
func RequireTenant(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				auth.WriteUnauthorized(w)
				return
			}

			ac, err := a.Build(r.Context(), token)
			if err != nil {
				auth.WriteError(w, err)
				return
			}

			ctx := authz.WithUser(r.Context(), ac.User)
			ctx = authz.WithContext(ctx, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity authenticates a request that is not bound to a tenant,
// such as listing or creating tenants. Only the user is attached.
func RequireIdentity(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				auth.WriteUnauthorized(w)
				return
			}

			u, err := a.Identify(r.Context(), token)
			if err != nil {
				auth.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithUser(r.Context(), u)))
		})
	}
}
