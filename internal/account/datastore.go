package account

import (
	"context"

	"github.com/shopspring/decimal"

	"financeplanner/internal/database"
)

// Datastore handles persistence for accounts.
// Every lookup is scoped by tenant id; a row owned by another tenant is
// indistinguishable from a missing one (sql.ErrNoRows).
type Datastore struct {
	db database.DBTX
}

// NewDatastore creates an account datastore over a pool or a transaction.
func NewDatastore(db database.DBTX) *Datastore {
	return &Datastore{db: db}
}

const accountColumns = `id, tenant_id, name, account_type, balance, opening_balance, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*Account, error) {
	a := &Account{}
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Type, &a.Balance, &a.OpeningBalance, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts an account whose balance starts at the opening balance.
func (ds *Datastore) Create(ctx context.Context, tenantID int64, name string, typ Type, opening decimal.Decimal) (*Account, error) {
	query := `
		INSERT INTO accounts (tenant_id, name, account_type, balance, opening_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, NOW(), NOW())
		RETURNING ` + accountColumns

	return scanAccount(ds.db.QueryRowContext(ctx, query, tenantID, name, string(typ), opening))
}

// GetByID retrieves an account owned by tenantID.
// Returns sql.ErrNoRows if absent or foreign.
func (ds *Datastore) GetByID(ctx context.Context, tenantID, id int64) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND tenant_id = $2`

	return scanAccount(ds.db.QueryRowContext(ctx, query, id, tenantID))
}

// Exists reports whether tenantID owns account id.
func (ds *Datastore) Exists(ctx context.Context, tenantID, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND tenant_id = $2)`

	var exists bool
	if err := ds.db.QueryRowContext(ctx, query, id, tenantID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByTenant returns every account of a tenant, oldest first.
func (ds *Datastore) ListByTenant(ctx context.Context, tenantID int64) ([]*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE tenant_id = $1
		ORDER BY id`

	rows, err := ds.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	accounts := []*Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// Update writes name and type and returns the updated row.
// Returns sql.ErrNoRows if absent or foreign.
func (ds *Datastore) Update(ctx context.Context, tenantID, id int64, name string, typ Type) (*Account, error) {
	query := `
		UPDATE accounts
		SET name = $3, account_type = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + accountColumns

	return scanAccount(ds.db.QueryRowContext(ctx, query, id, tenantID, name, string(typ)))
}

// Delete removes an account and, by cascade, its transactions.
// Returns rows affected count for caller to interpret.
func (ds *Datastore) Delete(ctx context.Context, tenantID, id int64) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AddToBalance applies delta to the stored balance in a single statement so
// concurrent adjustments serialize on the row lock and none is lost.
// Returns the new balance, or sql.ErrNoRows if the account is gone.
func (ds *Datastore) AddToBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance`

	var balance decimal.Decimal
	if err := ds.db.QueryRowContext(ctx, query, id, delta).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Totals returns the stored balance, the opening balance and the sum of all
// transaction amounts of an account owned by tenantID.
// Returns sql.ErrNoRows if absent or foreign.
func (ds *Datastore) Totals(ctx context.Context, tenantID, id int64) (balance, opening, total decimal.Decimal, err error) {
	query := `
		SELECT a.balance, a.opening_balance, COALESCE(SUM(t.amount), 0)
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		WHERE a.id = $1 AND a.tenant_id = $2
		GROUP BY a.id, a.balance, a.opening_balance`

	err = ds.db.QueryRowContext(ctx, query, id, tenantID).Scan(&balance, &opening, &total)
	return balance, opening, total, err
}
