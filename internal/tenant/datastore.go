package tenant

import (
	"context"

	"financeplanner/internal/database"
)

// Datastore handles persistence for tenants and memberships.
// It performs only database operations and returns raw errors.
// Business rules and error translation belong to the callers.
type Datastore struct {
	db database.DBTX
}

// NewDatastore creates a tenant datastore over a pool or a transaction.
func NewDatastore(db database.DBTX) *Datastore {
	return &Datastore{db: db}
}

const membershipColumns = `id, tenant_id, user_id, role, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(row scanner) (*Membership, error) {
	m := &Membership{}
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// GetTenant retrieves a tenant by ID.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	t := &Tenant{}
	err := ds.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTenant inserts a new tenant.
func (ds *Datastore) CreateTenant(ctx context.Context, name string) (*Tenant, error) {
	query := `
		INSERT INTO tenants (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, name, created_at, updated_at`

	t := &Tenant{}
	err := ds.db.QueryRowContext(ctx, query, name).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTenantName renames a tenant and returns the updated row.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) UpdateTenantName(ctx context.Context, id int64, name string) (*Tenant, error) {
	query := `
		UPDATE tenants
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, created_at, updated_at`

	t := &Tenant{}
	err := ds.db.QueryRowContext(ctx, query, id, name).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTenant removes a tenant. Memberships, accounts and transactions go
// with it through ON DELETE CASCADE.
// Returns rows affected count for caller to interpret.
func (ds *Datastore) DeleteTenant(ctx context.Context, id int64) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetMembership retrieves the membership of userID in tenantID.
// Returns sql.ErrNoRows if the user is not a member.
func (ds *Datastore) GetMembership(ctx context.Context, tenantID, userID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM tenant_memberships
		WHERE tenant_id = $1 AND user_id = $2`

	return scanMembership(ds.db.QueryRowContext(ctx, query, tenantID, userID))
}

// FindOwner returns the owner membership of a tenant.
// Returns sql.ErrNoRows if the tenant has no owner.
func (ds *Datastore) FindOwner(ctx context.Context, tenantID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM tenant_memberships
		WHERE tenant_id = $1 AND role = $2`

	return scanMembership(ds.db.QueryRowContext(ctx, query, tenantID, string(RoleOwner)))
}

// CreateMembership adds userID to tenantID with role.
// A second membership for the same pair fails with a unique violation.
func (ds *Datastore) CreateMembership(ctx context.Context, tenantID, userID int64, role Role) (*Membership, error) {
	query := `
		INSERT INTO tenant_memberships (tenant_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + membershipColumns

	return scanMembership(ds.db.QueryRowContext(ctx, query, tenantID, userID, string(role)))
}

// UpdateRole changes a member's role and returns the updated membership.
// Returns sql.ErrNoRows if the user is not a member.
func (ds *Datastore) UpdateRole(ctx context.Context, tenantID, userID int64, role Role) (*Membership, error) {
	query := `
		UPDATE tenant_memberships
		SET role = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2
		RETURNING ` + membershipColumns

	return scanMembership(ds.db.QueryRowContext(ctx, query, tenantID, userID, string(role)))
}

// DeleteMembership removes userID from tenantID.
// Returns rows affected count for caller to interpret.
func (ds *Datastore) DeleteMembership(ctx context.Context, tenantID, userID int64) (int64, error) {
	query := `DELETE FROM tenant_memberships WHERE tenant_id = $1 AND user_id = $2`

	result, err := ds.db.ExecContext(ctx, query, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListMembers returns every membership of a tenant with the member's
// external identity, oldest first.
func (ds *Datastore) ListMembers(ctx context.Context, tenantID int64) ([]*Member, error) {
	query := `
		SELECT m.id, m.tenant_id, m.user_id, m.role, m.created_at, m.updated_at, u.auth_user_id
		FROM tenant_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.tenant_id = $1
		ORDER BY m.created_at, m.id`

	rows, err := ds.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	members := []*Member{}
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt, &m.AuthUserID,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// ListForUser returns every tenant userID belongs to together with the
// user's role there.
func (ds *Datastore) ListForUser(ctx context.Context, userID int64) ([]*Summary, error) {
	query := `
		SELECT t.id, t.name, t.created_at, t.updated_at, m.role
		FROM tenant_memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_id = $1
		ORDER BY t.created_at, t.id`

	rows, err := ds.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	summaries := []*Summary{}
	for rows.Next() {
		s := &Summary{}
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.Role); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
