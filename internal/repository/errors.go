package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by repositories so services can map database
// constraint violations to domain errors without importing lib/pq.
var (
	// ErrDuplicate indicates a unique constraint violation (23505).
	ErrDuplicate = errors.New("duplicate row")
	// ErrReferenced indicates a foreign key violation (23503), i.e. the
	// row is still referenced by other rows.
	ErrReferenced = errors.New("row is referenced")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
