package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced reports a row that other rows still point to.
	ErrReferenced = errors.New("record still referenced")
	// ErrStateMismatch reports that a portfolio was not in the state the write was conditioned on.
	ErrStateMismatch = errors.New("portfolio state mismatch")
	// ErrDanglingRow reports a document row left behind after its blob was already removed.
	ErrDanglingRow = errors.New("document row outlived its blob")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// classify maps Postgres constraint failures onto repository sentinels, keeping the constraint name.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrReferenced, pqErr.Constraint)
	}
	return err
}
