package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-sales/internal/store"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrTransient         = errors.New("transient storage failure")
)

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string        { return fmt.Sprintf("%s %d not found", e.Entity, e.ID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) domain()              {}

// InvalidInputError reports a rejected request field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
func (e *InvalidInputError) domain()              {}

// InsufficientStockError reports a reservation larger than the available stock.
type InsufficientStockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
func (e *InsufficientStockError) domain()              {}

// ConflictError reports a deletion blocked by dependent records.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string        { return "conflict: " + e.Reason }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
func (e *ConflictError) domain()              {}

// StorageError wraps a database failure (timeout, deadlock, lost connection).
// The transaction it happened in was rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string        { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) Is(target error) bool { return target == ErrTransient }

type domainError interface {
	error
	domain()
}

// classify returns domain errors unchanged, reports values the database
// refused as InvalidInputError and wraps everything else as a StorageError
// for op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de domainError
	if errors.As(err, &de) {
		return err
	}
	if store.IsDataError(err) {
		return &InvalidInputError{Field: "value", Reason: "out_of_range"}
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
