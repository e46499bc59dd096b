package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	uniqueViolationCode = "23505"
	// ActiveDisputeIndex enforces one OPEN or IN_REVIEW dispute per transaction.
	ActiveDisputeIndex = "idx_disputes_active_transaction"
)

// translate maps driver errors onto domain errors. Anything the database could not answer
// is reported as ErrRepositoryUnavailable.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrRepositoryUnavailable, err)
	}
}

// uniqueViolation reports whether err is a unique constraint failure, on the named
// constraint when one is given.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

var domainErrors = []error{
	domain.ErrRepositoryUnavailable,
	domain.ErrVersionConflict,
	domain.ErrAlreadyExists,
	domain.ErrActiveDisputeExists,
	domain.ErrTransactionNotFound,
	domain.ErrDisputeNotFound,
	domain.ErrAdminNotFound,
	domain.ErrAdminAtCapacity,
}

// passThrough keeps errors already translated inside a transaction closure.
func passThrough(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return translate(err, nil)
}
