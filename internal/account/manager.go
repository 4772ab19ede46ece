// Package account manages tenant-owned accounts and their balances.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financeplanner/internal/apperr"
	"financeplanner/internal/authz"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound        = apperr.New(apperr.NotFound, "account not found")
	ErrWriteForbidden  = apperr.New(apperr.Forbidden, "your role does not allow changing accounts")
	ErrNegativeOpening = apperr.New(apperr.Validation, "initial balance must not be negative")
)

// Manager handles business logic for accounts.
type Manager struct {
	ds *Datastore
}

// NewManager creates a new account manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

// Create adds an account to the caller's tenant.
// The initial balance seeds both balance and opening balance.
func (m *Manager) Create(ctx context.Context, ac *authz.Context, in CreateInput) (*Account, error) {
	if !ac.CanWrite() {
		return nil, ErrWriteForbidden
	}

	name, err := NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, apperr.Newf(apperr.Validation, "invalid account type %q", in.Type)
	}
	opening, err := NormalizeMoney("initial balance", in.InitialBalance)
	if err != nil {
		return nil, err
	}
	if opening.IsNegative() {
		return nil, ErrNegativeOpening
	}

	a, err := m.ds.Create(ctx, ac.TenantID(), name, in.Type, opening)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// List returns every account of the caller's tenant.
func (m *Manager) List(ctx context.Context, ac *authz.Context) ([]*Account, error) {
	accounts, err := m.ds.ListByTenant(ctx, ac.TenantID())
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Get retrieves an account of the caller's tenant.
// Accounts of other tenants are reported as not found.
func (m *Manager) Get(ctx context.Context, ac *authz.Context, id int64) (*Account, error) {
	a, err := m.ds.GetByID(ctx, ac.TenantID(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// Update changes an account's name and/or type. Balances are never
// updated directly.
func (m *Manager) Update(ctx context.Context, ac *authz.Context, id int64, in UpdateInput) (*Account, error) {
	if !ac.CanWrite() {
		return nil, ErrWriteForbidden
	}

	current, err := m.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}

	name, typ := current.Name, current.Type
	if in.Name != nil {
		if name, err = NormalizeName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperr.Newf(apperr.Validation, "invalid account type %q", *in.Type)
		}
		typ = *in.Type
	}

	if in.Name == nil && in.Type == nil {
		return current, nil
	}

	a, err := m.ds.Update(ctx, ac.TenantID(), id, name, typ)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return a, nil
}

// Delete removes an account together with all of its transactions.
func (m *Manager) Delete(ctx context.Context, ac *authz.Context, id int64) error {
	if !ac.CanWrite() {
		return ErrWriteForbidden
	}

	rowsAffected, err := m.ds.Delete(ctx, ac.TenantID(), id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reconcile recomputes an account's balance from its opening balance and
// transactions and compares it with the stored balance.
func (m *Manager) Reconcile(ctx context.Context, ac *authz.Context, id int64) (*Reconciliation, error) {
	balance, opening, total, err := m.ds.Totals(ctx, ac.TenantID(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to reconcile account: %w", err)
	}
	return newReconciliation(id, balance, opening, total), nil
}
