package services

import (
	"gorm.io/gorm"

	"github.com/diewo77/go-sales/internal/store"
)

// find loads T by id, turning a missing row into *NotFoundError.
func find[T any](db *gorm.DB, entity string, id uint) (*T, error) {
	v, err := store.Find[T](db, id)
	if store.IsNotFound(err) {
		return nil, &NotFoundError{Entity: entity, ID: id}
	}
	return v, err
}

// findLocked is find with a row lock held until tx ends.
func findLocked[T any](tx *gorm.DB, entity string, id uint) (*T, error) {
	v, err := store.FindForUpdate[T](tx, id)
	if store.IsNotFound(err) {
		return nil, &NotFoundError{Entity: entity, ID: id}
	}
	return v, err
}
