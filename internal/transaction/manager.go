// Package transaction records money movements and keeps each account's
// balance equal to its opening balance plus the sum of its transactions.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"financeplanner/internal/account"
	"financeplanner/internal/apperr"
	"financeplanner/internal/authz"
	"financeplanner/internal/database"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound        = apperr.New(apperr.NotFound, "transaction not found")
	ErrAccountNotFound = apperr.New(apperr.NotFound, "account not found")
	ErrWriteForbidden  = apperr.New(apperr.Forbidden, "your role does not allow changing transactions")
	ErrBatchSize       = apperr.New(apperr.Validation, fmt.Sprintf("a batch must contain between %d and %d transactions", MinBatchSize, MaxBatchSize))
	ErrBatchAccount    = apperr.New(apperr.Validation, "all transactions in a batch must belong to the batch account")
)

// Manager handles business logic for transactions.
//
// Every mutation runs in one unit of work together with its balance
// adjustment, and the adjustment is a server-side increment.
type Manager struct {
	db database.Conn
	ds *Datastore
}

// NewManager creates a new transaction manager.
func NewManager(db database.Conn) *Manager {
	return &Manager{db: db, ds: NewDatastore(db)}
}

// Create records a transaction and applies its amount to the account balance.
func (m *Manager) Create(ctx context.Context, ac *authz.Context, in CreateInput) (*Transaction, error) {
	if !ac.CanWrite() {
		return nil, ErrWriteForbidden
	}
	if err := normalizeInput(&in); err != nil {
		return nil, err
	}

	var created *Transaction
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		accounts := account.NewDatastore(tx)

		if err := requireAccount(ctx, accounts, ac.TenantID(), in.AccountID); err != nil {
			return err
		}

		t, err := NewDatastore(tx).Create(ctx, &in)
		if err != nil {
			return database.TranslateError(err, "create transaction")
		}

		if _, err := accounts.AddToBalance(ctx, in.AccountID, in.Amount); err != nil {
			return database.TranslateError(err, "update account balance")
		}

		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateBatch records 1 to 100 transactions on one account and applies
// their summed amount to the balance with a single update. Either every
// row and the balance change commit, or nothing does.
func (m *Manager) CreateBatch(ctx context.Context, ac *authz.Context, in BatchInput) (*BatchResult, error) {
	if !ac.CanWrite() {
		return nil, ErrWriteForbidden
	}
	if n := len(in.Items); n < MinBatchSize || n > MaxBatchSize {
		return nil, ErrBatchSize
	}

	total := decimal.Zero
	for i := range in.Items {
		item := &in.Items[i]
		if item.AccountID == 0 {
			item.AccountID = in.AccountID
		}
		if item.AccountID != in.AccountID {
			return nil, ErrBatchAccount
		}
		if err := normalizeInput(item); err != nil {
			return nil, apperr.Newf(apperr.KindOf(err), "transactions[%d]: %s", i, apperr.PublicMessage(err))
		}
		total = total.Add(item.Amount)
	}

	result := &BatchResult{TotalAmount: total, Count: len(in.Items)}
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		accounts := account.NewDatastore(tx)
		store := NewDatastore(tx)

		if err := requireAccount(ctx, accounts, ac.TenantID(), in.AccountID); err != nil {
			return err
		}

		created := make([]*Transaction, 0, len(in.Items))
		for i := range in.Items {
			t, err := store.Create(ctx, &in.Items[i])
			if err != nil {
				return database.TranslateError(err, "create transaction")
			}
			created = append(created, t)
		}

		balance, err := accounts.AddToBalance(ctx, in.AccountID, total)
		if err != nil {
			return database.TranslateError(err, "update account balance")
		}

		result.Transactions = created
		result.AccountBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get retrieves a transaction of the caller's tenant.
func (m *Manager) Get(ctx context.Context, ac *authz.Context, id int64) (*Transaction, error) {
	t, err := m.ds.GetByID(ctx, ac.TenantID(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// List returns the caller's transactions matching f.
// Filtering by an account of another tenant is reported as not found.
func (m *Manager) List(ctx context.Context, ac *authz.Context, f Filter) (*Page, error) {
	if err := f.normalize(); err != nil {
		return nil, err
	}

	if f.AccountID != nil {
		if err := requireAccount(ctx, account.NewDatastore(m.db), ac.TenantID(), *f.AccountID); err != nil {
			return nil, err
		}
	}

	transactions, total, err := m.ds.List(ctx, ac.TenantID(), &f)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &Page{Transactions: transactions, Total: total}, nil
}

// Update applies p to a transaction. When the amount changes, the account
// balance moves by the difference in the same unit of work.
func (m *Manager) Update(ctx context.Context, ac *authz.Context, id int64, p Patch) (*Transaction, error) {
	if !ac.CanWrite() {
		return nil, ErrWriteForbidden
	}
	if p.Amount != nil {
		amount, err := account.NormalizeMoney("amount", *p.Amount)
		if err != nil {
			return nil, err
		}
		p.Amount = &amount
	}

	var updated *Transaction
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		store := NewDatastore(tx)

		current, err := store.GetForUpdate(ctx, ac.TenantID(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get transaction: %w", err)
		}

		delta, err := p.apply(current)
		if err != nil {
			return err
		}

		t, err := store.Update(ctx, current)
		if err != nil {
			return database.TranslateError(err, "update transaction")
		}

		if !delta.IsZero() {
			if _, err := account.NewDatastore(tx).AddToBalance(ctx, t.AccountID, delta); err != nil {
				return database.TranslateError(err, "update account balance")
			}
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a transaction and takes its amount back out of the
// account balance.
func (m *Manager) Delete(ctx context.Context, ac *authz.Context, id int64) error {
	if !ac.CanWrite() {
		return ErrWriteForbidden
	}

	return database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		accountID, amount, err := NewDatastore(tx).Delete(ctx, ac.TenantID(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to delete transaction: %w", err)
		}

		if _, err := account.NewDatastore(tx).AddToBalance(ctx, accountID, amount.Neg()); err != nil {
			return database.TranslateError(err, "update account balance")
		}
		return nil
	})
}

func normalizeInput(in *CreateInput) error {
	if in.AccountID <= 0 {
		return apperr.New(apperr.Validation, "account_id must be a positive integer")
	}
	amount, err := account.NormalizeMoney("amount", in.Amount)
	if err != nil {
		return err
	}
	in.Amount = amount
	return in.normalize()
}

func requireAccount(ctx context.Context, accounts *account.Datastore, tenantID, accountID int64) error {
	exists, err := accounts.Exists(ctx, tenantID, accountID)
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return nil
}
