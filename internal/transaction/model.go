package transaction

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"financeplanner/internal/apperr"
)

// Column widths from the transactions table.
const (
	MaxCategoryLength    = 100
	MaxDescriptionLength = 1000
	MaxMerchantLength    = 255
	MaxLocationLength    = 255
)

// Batch bounds.
const (
	MinBatchSize = 1
	MaxBatchSize = 100
)

// Pagination bounds.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day, held at UTC midnight.
type Date struct {
	time.Time
}

// NewDate returns the date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, apperr.Newf(apperr.Validation, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a YYYY-MM-DD string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = Date{t}
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Transaction is a signed money movement on one account.
// Positive amounts are income, negative amounts are expenses.
type Transaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        Date            `json:"date"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
	Merchant    *string         `json:"merchant"`
	Location    *string         `json:"location"`
	Tags        []string        `json:"tags"`
	DerCategory *string         `json:"der_category"`
	DerMerchant *string         `json:"der_merchant"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateInput holds the fields of a new transaction.
type CreateInput struct {
	AccountID   int64
	Amount      decimal.Decimal
	Date        Date
	Category    string
	Description *string
	Merchant    *string
	Location    *string
	Tags        []string
	DerCategory *string
	DerMerchant *string
}

// BatchInput is a set of transactions for a single account.
// Items may leave AccountID zero; any other value must equal AccountID.
type BatchInput struct {
	AccountID int64
	Items     []CreateInput
}

// BatchResult reports a committed batch.
type BatchResult struct {
	Transactions   []*Transaction  `json:"transactions"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Count          int             `json:"count"`
}

// NullableString is a patch value for a nullable column.
// Set false leaves the column alone; Set with a nil Value clears it.
type NullableString struct {
	Set   bool
	Value *string
}

// Patch replaces exactly the fields it carries.
type Patch struct {
	Amount      *decimal.Decimal
	Date        *Date
	Category    *string
	Description NullableString
	Merchant    NullableString
	Location    NullableString
	Tags        *[]string
	DerCategory NullableString
	DerMerchant NullableString
}

// Filter narrows a transaction listing. Nil fields do not filter.
// All set fields must match; Tags matches when any tag is shared.
type Filter struct {
	AccountID   *int64
	StartDate   *Date
	EndDate     *Date
	Category    *string
	Merchant    *string
	DerCategory *string
	DerMerchant *string
	Tags        []string
	Limit       int
	Offset      int
}

// Page is one page of a listing plus the unpaginated match count.
type Page struct {
	Transactions []*Transaction `json:"transactions"`
	Total        int            `json:"total"`
}

func validateText(field, value string, min, max int) error {
	if n := utf8.RuneCountInString(value); n < min || n > max {
		if min > 0 {
			return apperr.Newf(apperr.Validation, "%s must be between %d and %d characters", field, min, max)
		}
		return apperr.Newf(apperr.Validation, "%s must be at most %d characters", field, max)
	}
	return nil
}

func validateOptional(field string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return validateText(field, *value, 0, max)
}

func normalizeCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if err := validateText("category", category, 1, MaxCategoryLength); err != nil {
		return "", err
	}
	return category, nil
}

// normalizeTags trims tags and drops empty ones. The result is never nil.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func (in *CreateInput) normalize() error {
	var err error
	if in.Category, err = normalizeCategory(in.Category); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return apperr.New(apperr.Validation, "date is required")
	}
	if err := validateOptional("description", in.Description, MaxDescriptionLength); err != nil {
		return err
	}
	if err := validateOptional("merchant", in.Merchant, MaxMerchantLength); err != nil {
		return err
	}
	if err := validateOptional("location", in.Location, MaxLocationLength); err != nil {
		return err
	}
	if err := validateOptional("der_category", in.DerCategory, MaxCategoryLength); err != nil {
		return err
	}
	if err := validateOptional("der_merchant", in.DerMerchant, MaxMerchantLength); err != nil {
		return err
	}
	in.Tags = normalizeTags(in.Tags)
	return nil
}

// apply copies the patched fields onto t and reports the amount delta.
func (p *Patch) apply(t *Transaction) (decimal.Decimal, error) {
	delta := decimal.Zero

	if p.Amount != nil {
		delta = p.Amount.Sub(t.Amount)
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		if p.Date.IsZero() {
			return decimal.Zero, apperr.New(apperr.Validation, "date must not be empty")
		}
		t.Date = *p.Date
	}
	if p.Category != nil {
		category, err := normalizeCategory(*p.Category)
		if err != nil {
			return decimal.Zero, err
		}
		t.Category = category
	}

	nullable := []struct {
		field string
		patch NullableString
		max   int
		dest  **string
	}{
		{"description", p.Description, MaxDescriptionLength, &t.Description},
		{"merchant", p.Merchant, MaxMerchantLength, &t.Merchant},
		{"location", p.Location, MaxLocationLength, &t.Location},
		{"der_category", p.DerCategory, MaxCategoryLength, &t.DerCategory},
		{"der_merchant", p.DerMerchant, MaxMerchantLength, &t.DerMerchant},
	}
	for _, n := range nullable {
		if !n.patch.Set {
			continue
		}
		if err := validateOptional(n.field, n.patch.Value, n.max); err != nil {
			return decimal.Zero, err
		}
		*n.dest = n.patch.Value
	}

	if p.Tags != nil {
		t.Tags = normalizeTags(*p.Tags)
	}

	return delta, nil
}

func (f *Filter) normalize() error {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		return apperr.Newf(apperr.Validation, "limit must be between 1 and %d", MaxLimit)
	}
	if f.Offset < 0 {
		return apperr.New(apperr.Validation, "offset must not be negative")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(f.StartDate.Time) {
		return apperr.New(apperr.Validation, "end_date must not be before start_date")
	}
	f.Tags = normalizeTags(f.Tags)
	return nil
}
