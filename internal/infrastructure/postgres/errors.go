package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapError translates driver errors into the shared error kinds. notFound is
// the message used when the row does not exist.
func mapError(op, notFound string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(op, notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperror.Conflict(op, conflictMessage(pgErr.ConstraintName), err)
		case codeForeignKeyViolation:
			return apperror.NotFound(op, "user not found")
		}
	}
	return apperror.Technical(op, err)
}

func conflictMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "username"):
		return "username already taken"
	case strings.Contains(constraint, "email"):
		return "email already registered"
	default:
		return "already exists"
	}
}
