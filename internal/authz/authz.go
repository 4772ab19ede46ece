// Package authz builds the per-request authorization context: who the caller
// is, which tenant they act in and with what role.
package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financeplanner/internal/apperr"
	"financeplanner/internal/jwtauth"
	"financeplanner/internal/tenant"
	"financeplanner/internal/user"
)

var (
	ErrTenantNotFound = apperr.New(apperr.NotFound, "tenant not found")
	ErrNotMember      = apperr.New(apperr.Forbidden, "user is not a member of this tenant")
)

// Context is the resolved (user, tenant, role) triple for one request.
// It is built once per request and never mutated.
type Context struct {
	User   *user.User
	Tenant *tenant.Tenant
	Role   tenant.Role
}

func (c *Context) UserID() int64   { return c.User.ID }
func (c *Context) TenantID() int64 { return c.Tenant.ID }

// HasRole reports whether the caller's role is at least min.
func (c *Context) HasRole(min tenant.Role) bool {
	return c.Role.AtLeast(min)
}

// CanRead is true for every member, viewers included.
func (c *Context) CanRead() bool { return c.HasRole(tenant.RoleViewer) }

// CanWrite is true for owners, admins and members.
func (c *Context) CanWrite() bool { return c.HasRole(tenant.RoleMember) }

func (c *Context) IsAdminOrHigher() bool { return c.HasRole(tenant.RoleAdmin) }

func (c *Context) IsOwner() bool { return c.Role == tenant.RoleOwner }

// TokenVerifier validates identity tokens.
type TokenVerifier interface {
	Verify(token string) (*jwtauth.Claims, error)
	VerifyIdentity(token string) (*jwtauth.Claims, error)
}

// UserResolver maps an external identity to a user, creating it on first sight.
type UserResolver interface {
	Resolve(ctx context.Context, authUserID string) (*user.User, error)
}

// MembershipStore looks up tenants and memberships.
// Lookups return sql.ErrNoRows when nothing matches.
type MembershipStore interface {
	GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error)
	GetMembership(ctx context.Context, tenantID, userID int64) (*tenant.Membership, error)
}

// Builder turns bearer tokens into authorization contexts.
type Builder struct {
	verifier TokenVerifier
	users    UserResolver
	store    MembershipStore
}

// NewBuilder creates a new authorization context builder.
func NewBuilder(verifier TokenVerifier, users UserResolver, store MembershipStore) *Builder {
	return &Builder{verifier: verifier, users: users, store: store}
}

// Build verifies a tenant-scoped token and resolves the caller's membership.
//
// Steps run in a fixed order and stop at the first failure:
//  1. token verification (Unauthorized)
//  2. tenant id parsing (BadRequest)
//  3. user resolution, which may create the user
//  4. tenant lookup (NotFound)
//  5. membership lookup (Forbidden)
//
// A user created in step 3 is kept even when a later step fails.
func (b *Builder) Build(ctx context.Context, token string) (*Context, error) {
	claims, err := b.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	tenantID, err := claims.TenantID()
	if err != nil {
		return nil, err
	}

	u, err := b.users.Resolve(ctx, claims.AuthUserID())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	t, err := b.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	m, err := b.store.GetMembership(ctx, t.ID, u.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &Context{User: u, Tenant: t, Role: m.Role}, nil
}

// Identify verifies a token without requiring a tenant claim and resolves
// the caller. Used by operations that act across tenants, such as listing
// or creating them.
func (b *Builder) Identify(ctx context.Context, token string) (*user.User, error) {
	claims, err := b.verifier.VerifyIdentity(token)
	if err != nil {
		return nil, err
	}

	u, err := b.users.Resolve(ctx, claims.AuthUserID())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return u, nil
}

type contextKey int

const (
	authContextKey contextKey = iota
	userContextKey
)

// WithContext attaches an authorization context to ctx.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext retrieves the authorization context attached by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(authContextKey).(*Context)
	return ac, ok && ac != nil
}

// WithUser attaches an identity-only caller to ctx.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext retrieves the caller attached by WithUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok && u != nil
}
