package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"financeplanner/internal/apperr"
)

// Domain errors
var (
	ErrInvalidAuthUserID = apperr.New(apperr.BadRequest, "invalid user identifier")
)

// MaxAuthUserIDLength matches the users.auth_user_id column width.
const MaxAuthUserIDLength = 255

// Manager is the user registry: it maps external identities to internal users.
type Manager struct {
	ds *Datastore
}

// NewManager creates a new user manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

// Resolve returns the user for authUserID, creating it on first sight.
// Concurrent calls for the same identity converge on a single row.
func (m *Manager) Resolve(ctx context.Context, authUserID string) (*User, error) {
	authUserID = strings.TrimSpace(authUserID)
	if authUserID == "" || len(authUserID) > MaxAuthUserIDLength {
		return nil, ErrInvalidAuthUserID
	}

	u, err := m.ds.GetByAuthUserID(ctx, authUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u, err = m.ds.Create(ctx, authUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}
