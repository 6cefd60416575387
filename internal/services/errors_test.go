package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&NotFoundError{Entity: "invoice", ID: 3}, ErrNotFound},
		{&InvalidInputError{Field: "quantity", Reason: "must_be_positive"}, ErrInvalidInput},
		{&InsufficientStockError{ProductID: 1, Requested: 4, Available: 3}, ErrInsufficientStock},
		{&ConflictError{Reason: "client has invoices"}, ErrConflict},
		{&StorageError{Op: "create detail", Err: context.DeadlineExceeded}, ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.want)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	nf := &NotFoundError{Entity: "product", ID: 9}
	assert.Same(t, nf, classify("op", nf))

	err := classify("update detail", context.DeadlineExceeded)
	var se *StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "update detail", se.Op)
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// already classified errors are not wrapped twice
	assert.Same(t, err, classify("other", err))

	for _, refused := range []error{
		&pgconn.PgError{Code: "22003"},
		&pgconn.PgError{Code: "22P02"},
		&pgconn.PgError{Code: "23514"},
		fmt.Errorf("insert: %w", gorm.ErrCheckConstraintViolated),
	} {
		err := classify("create detail", refused)
		assert.ErrorIs(t, err, ErrInvalidInput, "%v", refused)
		assert.NotErrorIs(t, err, ErrTransient, "%v", refused)
	}

	err = classify("create detail", &pgconn.PgError{Code: "40001"})
	assert.ErrorIs(t, err, ErrTransient)
}
