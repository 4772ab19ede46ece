package user

import (
	"context"

	"financeplanner/internal/database"
)

// Datastore handles database operations for users.
type Datastore struct {
	db database.DBTX
}

// NewDatastore creates a new user datastore.
func NewDatastore(db database.DBTX) *Datastore {
	return &Datastore{db: db}
}

// Create inserts a user for authUserID, or returns the existing row if a
// concurrent caller inserted it first. The conflict branch rewrites the key
// with itself so RETURNING always yields exactly one row.
func (ds *Datastore) Create(ctx context.Context, authUserID string) (*User, error) {
	query := `
		INSERT INTO users (auth_user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (auth_user_id)
		DO UPDATE SET auth_user_id = EXCLUDED.auth_user_id
		RETURNING id, auth_user_id, created_at, updated_at`

	u := &User{}
	err := ds.db.QueryRowContext(ctx, query, authUserID).Scan(
		&u.ID, &u.AuthUserID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByAuthUserID retrieves a user by external identity.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByAuthUserID(ctx context.Context, authUserID string) (*User, error) {
	query := `
		SELECT id, auth_user_id, created_at, updated_at
		FROM users WHERE auth_user_id = $1`

	u := &User{}
	err := ds.db.QueryRowContext(ctx, query, authUserID).Scan(
		&u.ID, &u.AuthUserID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}
