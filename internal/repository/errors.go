package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInsufficientStock is returned by the conditional decrement when the
	// row's stock is below the requested quantity (zero rows affected).
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicate wraps unique-constraint violations.
	ErrDuplicate = errors.New("duplicate record")

	// ErrReferenced wraps foreign-key violations on delete.
	ErrReferenced = errors.New("record is still referenced")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate maps driver constraint errors onto the repository sentinels.
func translate(err error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return errors.Join(ErrDuplicate, err)
	case pgForeignKeyViolation:
		return errors.Join(ErrReferenced, err)
	}
	return err
}
