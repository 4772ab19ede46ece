package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"financeplanner/internal/apperr"
)

// PostgreSQL SQLSTATE codes the engines care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// TranslateError classifies a storage error into the domain taxonomy.
// Constraint violations become Conflict or Validation; anything else is
// wrapped as an internal failure with op describing what was attempted.
func TranslateError(err error, op string) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Wrap(apperr.Conflict, "resource already exists", err)
		case codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation:
			return apperr.Wrap(apperr.Validation, "constraint violation", err)
		}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
