package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// DuplicateColumn reports which of the candidate columns a unique violation
// refers to. It inspects the postgres constraint name and the sqlite
// message text. Returns "" when no candidate matches.
func DuplicateColumn(err error, candidates ...string) string {
	if !IsDuplicateKeyErr(err) {
		return ""
	}

	var detail string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		detail = pgErr.ConstraintName + " " + pgErr.Detail
	case errors.As(err, &pqErr):
		detail = pqErr.Constraint + " " + pqErr.Detail
	default:
		detail = err.Error()
	}
	detail = strings.ToLower(detail)

	for _, column := range candidates {
		if column == "" {
			continue
		}
		if strings.Contains(detail, "."+column) ||
			strings.Contains(detail, "_"+column) ||
			strings.Contains(detail, "("+column+")") {
			return column
		}
	}
	return ""
}
