package account

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"financeplanner/internal/apperr"
)

// MaxNameLength matches the accounts.name column width.
const MaxNameLength = 255

// maxMoney is the first value that no longer fits NUMERIC(15,2).
var maxMoney = decimal.New(1, 13)

// Exponent bounds checked before rounding. Rescaling a decimal with an
// extreme exponent allocates a bignum with that many digits.
const (
	maxMoneyDigits   = 13
	minMoneyExponent = -32
)

// Type classifies an account.
type Type string

const (
	TypeChecking   Type = "checking"
	TypeSavings    Type = "savings"
	TypeCreditCard Type = "credit_card"
	TypeInvestment Type = "investment"
	TypeLoan       Type = "loan"
	TypeOther      Type = "other"
)

// Valid reports whether t is a known account type.
func (t Type) Valid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeCreditCard, TypeInvestment, TypeLoan, TypeOther:
		return true
	}
	return false
}

// ParseType accepts an account type name in any case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", apperr.Newf(apperr.Validation, "invalid account type %q", s)
	}
	return t, nil
}

// Account is a tenant-owned ledger with a running balance.
//
// Balance always equals OpeningBalance plus the sum of the account's
// transaction amounts. OpeningBalance is the creation seed and is not
// backed by a transaction row.
type Account struct {
	ID             int64           `json:"id"`
	TenantID       int64           `json:"tenant_id"`
	Name           string          `json:"name"`
	Type           Type            `json:"account_type"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateInput holds the fields of a new account.
type CreateInput struct {
	Name           string
	Type           Type
	InitialBalance decimal.Decimal
}

// UpdateInput replaces only the non-nil fields.
type UpdateInput struct {
	Name *string
	Type *Type
}

// Reconciliation compares the stored balance with the balance implied by
// the opening seed and the account's transactions.
type Reconciliation struct {
	AccountID        int64           `json:"account_id"`
	Balance          decimal.Decimal `json:"balance"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	TransactionTotal decimal.Decimal `json:"transaction_total"`
	Expected         decimal.Decimal `json:"expected_balance"`
	Difference       decimal.Decimal `json:"difference"`
	Balanced         bool            `json:"balanced"`
}

func newReconciliation(id int64, balance, opening, total decimal.Decimal) *Reconciliation {
	expected := opening.Add(total)
	diff := balance.Sub(expected)
	return &Reconciliation{
		AccountID:        id,
		Balance:          balance,
		OpeningBalance:   opening,
		TransactionTotal: total,
		Expected:         expected,
		Difference:       diff,
		Balanced:         diff.IsZero(),
	}
}

// NormalizeName trims an account name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return "", apperr.New(apperr.Validation, "account name must be between 1 and 255 characters")
	}
	return name, nil
}

// NormalizeMoney rounds an amount to cents and checks that it fits the
// storage column. field names the value in the error message.
func NormalizeMoney(field string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	exp := int(amount.Exponent())
	if exp > maxMoneyDigits || exp < minMoneyExponent || amount.NumDigits()+exp > maxMoneyDigits {
		return decimal.Zero, outOfRange(field)
	}
	amount = amount.Round(2)
	if amount.Abs().GreaterThanOrEqual(maxMoney) {
		return decimal.Zero, outOfRange(field)
	}
	return amount, nil
}

func outOfRange(field string) error {
	return apperr.New(apperr.Validation, fmt.Sprintf("%s is out of range", field))
}
