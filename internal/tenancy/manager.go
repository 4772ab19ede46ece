// Package tenancy implements tenant management: tenant lifecycle and
// membership administration under role-based rules.
package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financeplanner/internal/apperr"
	"financeplanner/internal/authz"
	"financeplanner/internal/database"
	"financeplanner/internal/tenant"
	"financeplanner/internal/user"
)

// Domain errors returned by the Manager.
var (
	ErrOwnerRequired       = apperr.New(apperr.Forbidden, "only the tenant owner can perform this action")
	ErrAdminRequired       = apperr.New(apperr.Forbidden, "only owners and admins can manage members")
	ErrInviteOwner         = apperr.New(apperr.Forbidden, "only the owner can invite another owner")
	ErrCannotChangeOwn     = apperr.New(apperr.Forbidden, "cannot change your own role")
	ErrCannotChangeOwner   = apperr.New(apperr.Forbidden, "cannot change the owner's role")
	ErrCannotRemoveSelf    = apperr.New(apperr.Forbidden, "cannot remove yourself from the tenant")
	ErrCannotRemoveOwner   = apperr.New(apperr.Forbidden, "cannot remove the tenant owner")
	ErrAlreadyMember       = apperr.New(apperr.Validation, "user is already a member of this tenant")
	ErrSingleOwner         = apperr.New(apperr.Validation, "a tenant has exactly one owner")
	ErrMemberNotFound      = apperr.New(apperr.NotFound, "member not found")
	ErrTenantNotFound      = apperr.New(apperr.NotFound, "tenant not found")
	ErrDuplicateMembership = apperr.New(apperr.Conflict, "membership already exists")
)

// UserResolver maps an external identity to a user, creating it on first sight.
type UserResolver interface {
	Resolve(ctx context.Context, authUserID string) (*user.User, error)
}

// RemovedMember identifies the user whose membership was removed.
type RemovedMember struct {
	UserID int64 `json:"user_id"`
}

// Manager handles tenant and membership business logic.
// Every operation checks the caller's role before it reads or writes
// anything beyond the caller's own tenant.
type Manager struct {
	db    database.Conn
	store *tenant.Datastore
	users UserResolver
}

// NewManager creates a new tenant manager.
func NewManager(db database.Conn, users UserResolver) *Manager {
	return &Manager{
		db:    db,
		store: tenant.NewDatastore(db),
		users: users,
	}
}

// GetCurrent returns the tenant the caller is acting in.
func (m *Manager) GetCurrent(ac *authz.Context) *tenant.Tenant {
	return ac.Tenant
}

// ListForUser returns every tenant u belongs to, with u's role in each.
func (m *Manager) ListForUser(ctx context.Context, u *user.User) ([]*tenant.Summary, error) {
	summaries, err := m.store.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return summaries, nil
}

// Create makes a new tenant owned by u. The tenant and its owner membership
// are written in one unit of work so a tenant never exists without an owner.
func (m *Manager) Create(ctx context.Context, u *user.User, name string) (*tenant.Summary, error) {
	name, err := tenant.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	var created *tenant.Tenant
	err = database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		store := tenant.NewDatastore(tx)

		t, err := store.CreateTenant(ctx, name)
		if err != nil {
			return database.TranslateError(err, "create tenant")
		}
		if _, err := store.CreateMembership(ctx, t.ID, u.ID, tenant.RoleOwner); err != nil {
			return database.TranslateError(err, "create owner membership")
		}

		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &tenant.Summary{Tenant: *created, Role: tenant.RoleOwner}, nil
}

// UpdateName renames the caller's tenant. Owner only.
func (m *Manager) UpdateName(ctx context.Context, ac *authz.Context, name string) (*tenant.Tenant, error) {
	if !ac.IsOwner() {
		return nil, ErrOwnerRequired
	}

	name, err := tenant.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	t, err := m.store.UpdateTenantName(ctx, ac.TenantID(), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return t, nil
}

// Delete removes the caller's tenant with all of its memberships, accounts
// and transactions. Owner only.
func (m *Manager) Delete(ctx context.Context, ac *authz.Context) error {
	if !ac.IsOwner() {
		return ErrOwnerRequired
	}

	rowsAffected, err := m.store.DeleteTenant(ctx, ac.TenantID())
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// ListMembers returns the tenant's members with their external identities.
// Any role may list.
func (m *Manager) ListMembers(ctx context.Context, ac *authz.Context) ([]*tenant.Member, error) {
	members, err := m.store.ListMembers(ctx, ac.TenantID())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// Invite adds the user identified by authUserID to the caller's tenant,
// registering the user if needed. An empty role means member.
func (m *Manager) Invite(ctx context.Context, ac *authz.Context, authUserID string, role tenant.Role) (*tenant.Member, error) {
	if !ac.IsAdminOrHigher() {
		return nil, ErrAdminRequired
	}

	if role == "" {
		role = tenant.RoleMember
	}
	role, err := tenant.ParseRole(string(role))
	if err != nil {
		return nil, err
	}

	invitee, err := m.users.Resolve(ctx, authUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invitee: %w", err)
	}

	_, err = m.store.GetMembership(ctx, ac.TenantID(), invitee.ID)
	if err == nil {
		return nil, ErrAlreadyMember
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if role == tenant.RoleOwner {
		if !ac.IsOwner() {
			return nil, ErrInviteOwner
		}
		return nil, ErrSingleOwner
	}

	membership, err := m.store.CreateMembership(ctx, ac.TenantID(), invitee.ID, role)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateMembership, err)
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	return &tenant.Member{Membership: *membership, AuthUserID: invitee.AuthUserID}, nil
}

// UpdateMemberRole changes another member's role. Owner only; the owner's
// own role and ownership itself cannot be changed this way.
func (m *Manager) UpdateMemberRole(ctx context.Context, ac *authz.Context, userID int64, role tenant.Role) (*tenant.Membership, error) {
	if !ac.IsOwner() {
		return nil, ErrOwnerRequired
	}

	role, err := tenant.ParseRole(string(role))
	if err != nil {
		return nil, err
	}

	target, err := m.getMembership(ctx, ac.TenantID(), userID)
	if err != nil {
		return nil, err
	}

	if target.UserID == ac.UserID() {
		return nil, ErrCannotChangeOwn
	}
	if target.Role == tenant.RoleOwner {
		return nil, ErrCannotChangeOwner
	}
	if role == tenant.RoleOwner {
		return nil, ErrSingleOwner
	}

	updated, err := m.store.UpdateRole(ctx, ac.TenantID(), userID, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return updated, nil
}

// RemoveMember removes another non-owner member. Owners and admins only.
func (m *Manager) RemoveMember(ctx context.Context, ac *authz.Context, userID int64) (*RemovedMember, error) {
	if !ac.IsAdminOrHigher() {
		return nil, ErrAdminRequired
	}

	target, err := m.getMembership(ctx, ac.TenantID(), userID)
	if err != nil {
		return nil, err
	}

	if target.UserID == ac.UserID() {
		return nil, ErrCannotRemoveSelf
	}
	if target.Role == tenant.RoleOwner {
		return nil, ErrCannotRemoveOwner
	}

	rowsAffected, err := m.store.DeleteMembership(ctx, ac.TenantID(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrMemberNotFound
	}

	return &RemovedMember{UserID: userID}, nil
}

func (m *Manager) getMembership(ctx context.Context, tenantID, userID int64) (*tenant.Membership, error) {
	membership, err := m.store.GetMembership(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return membership, nil
}
