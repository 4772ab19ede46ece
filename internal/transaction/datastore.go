package transaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"financeplanner/internal/database"
)

// Datastore handles persistence for transactions.
// Tenant scoping always goes through the owning account's tenant_id.
type Datastore struct {
	db database.DBTX
}

// NewDatastore creates a transaction datastore over a pool or a transaction.
func NewDatastore(db database.DBTX) *Datastore {
	return &Datastore{db: db}
}

const transactionColumns = `t.id, t.account_id, t.amount, t.date, t.category, t.description, t.merchant,
		t.location, t.tags, t.der_category, t.der_merchant, t.created_at, t.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*Transaction, error) {
	t := &Transaction{}
	if err := row.Scan(
		&t.ID, &t.AccountID, &t.Amount, &t.Date, &t.Category, &t.Description, &t.Merchant,
		&t.Location, pq.Array(&t.Tags), &t.DerCategory, &t.DerMerchant, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

// Create inserts a transaction. The caller is responsible for the balance.
func (ds *Datastore) Create(ctx context.Context, in *CreateInput) (*Transaction, error) {
	query := `
		INSERT INTO transactions AS t (account_id, amount, date, category, description, merchant,
			location, tags, der_category, der_merchant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING ` + transactionColumns

	return scanTransaction(ds.db.QueryRowContext(ctx, query,
		in.AccountID, in.Amount, in.Date, in.Category, in.Description, in.Merchant,
		in.Location, pq.Array(in.Tags), in.DerCategory, in.DerMerchant,
	))
}

// GetByID retrieves a transaction whose account belongs to tenantID.
// Returns sql.ErrNoRows if absent or foreign.
func (ds *Datastore) GetByID(ctx context.Context, tenantID, id int64) (*Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.tenant_id = $2`

	return scanTransaction(ds.db.QueryRowContext(ctx, query, id, tenantID))
}

// GetForUpdate is GetByID that also locks the transaction row until the
// surrounding unit of work ends.
func (ds *Datastore) GetForUpdate(ctx context.Context, tenantID, id int64) (*Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.tenant_id = $2
		FOR UPDATE OF t`

	return scanTransaction(ds.db.QueryRowContext(ctx, query, id, tenantID))
}

// Update writes every mutable field of t and returns the stored row.
func (ds *Datastore) Update(ctx context.Context, t *Transaction) (*Transaction, error) {
	query := `
		UPDATE transactions AS t
		SET amount = $2, date = $3, category = $4, description = $5, merchant = $6,
			location = $7, tags = $8, der_category = $9, der_merchant = $10, updated_at = NOW()
		WHERE t.id = $1
		RETURNING ` + transactionColumns

	return scanTransaction(ds.db.QueryRowContext(ctx, query,
		t.ID, t.Amount, t.Date, t.Category, t.Description, t.Merchant,
		t.Location, pq.Array(t.Tags), t.DerCategory, t.DerMerchant,
	))
}

// Delete removes a transaction whose account belongs to tenantID and returns
// the account id and amount it held. The ownership check and the delete are
// one statement.
// Returns sql.ErrNoRows if absent or foreign.
func (ds *Datastore) Delete(ctx context.Context, tenantID, id int64) (accountID int64, amount decimal.Decimal, err error) {
	query := `
		DELETE FROM transactions t
		USING accounts a
		WHERE t.id = $1 AND a.id = t.account_id AND a.tenant_id = $2
		RETURNING t.account_id, t.amount`

	err = ds.db.QueryRowContext(ctx, query, id, tenantID).Scan(&accountID, &amount)
	return accountID, amount, err
}

// List returns one page of transactions matching f within tenantID, newest
// first, and the number of matches before pagination.
func (ds *Datastore) List(ctx context.Context, tenantID int64, f *Filter) ([]*Transaction, int, error) {
	where, args := buildWhere(tenantID, f)

	countQuery := `
		SELECT COUNT(*)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE ` + where

	var total int
	if err := ds.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE %s
		ORDER BY t.date DESC, t.id DESC
		LIMIT $%d OFFSET $%d`, transactionColumns, where, len(args)+1, len(args)+2)

	rows, err := ds.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = rows.Close()
	}()

	transactions := []*Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// buildWhere renders the filter predicate shared by the count and page
// queries. Values are always bound as parameters.
func buildWhere(tenantID int64, f *Filter) (string, []any) {
	conds := []string{"a.tenant_id = $1"}
	args := []any{tenantID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.AccountID != nil {
		add("t.account_id = $%d", *f.AccountID)
	}
	if f.StartDate != nil {
		add("t.date >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("t.date <= $%d", *f.EndDate)
	}
	if f.Category != nil {
		add("t.category = $%d", *f.Category)
	}
	if f.Merchant != nil {
		add("t.merchant ILIKE $%d", containsPattern(*f.Merchant))
	}
	if f.DerCategory != nil {
		add("t.der_category = $%d", *f.DerCategory)
	}
	if f.DerMerchant != nil {
		add("t.der_merchant ILIKE $%d", containsPattern(*f.DerMerchant))
	}
	if len(f.Tags) > 0 {
		add("t.tags && $%d", pq.Array(f.Tags))
	}

	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns s into an ILIKE substring pattern matching s literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
