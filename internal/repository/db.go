package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the subset of pgx satisfied by both a pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapStorageErr classifies low-level pgx errors into the domain taxonomy.
// Connection-class failures become StorageUnavailable so callers fail
// closed and retry with backoff; everything else passes through.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions, class 57: operator intervention
		// (shutdown). Anything else is a real query error.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
			return domain.NewDomainErrorWithCause(domain.ErrCodeStorageUnavailable, "database connection failed", err)
		}
		return err
	}

	if pgconn.SafeToRetry(err) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStorageUnavailable, "database unreachable", err)
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// foreignKeyTarget returns the referenced constraint name when err is a
// foreign-key violation, "" otherwise.
func foreignKeyTarget(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return pgErr.ConstraintName
	}
	return ""
}
