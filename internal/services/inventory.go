package services

import (
	"gorm.io/gorm"

	"github.com/diewo77/go-sales/internal/models"
)

// Reserve moves delta units of product stock inside tx: a positive delta
// consumes stock, a negative one returns it. product must have been read in
// the same transaction; its Stock field is kept in step with the row.
//
// Consuming more than is available fails with *InsufficientStockError and
// writes nothing. The decrement is a guarded update, so the row can never go
// below zero even if product is stale.
func Reserve(tx *gorm.DB, product *models.Product, delta int) error {
	if delta == 0 {
		return nil
	}
	if delta < 0 {
		err := tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock + ?", -delta)).Error
		if err != nil {
			return err
		}
		product.Stock -= delta
		return nil
	}

	if !product.CanSupply(delta) {
		return &InsufficientStockError{ProductID: product.ID, Requested: delta, Available: product.Stock}
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", product.ID, delta).
		Update("stock", gorm.Expr("stock - ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// the row moved under us; report what is really there
		var available int
		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Pluck("stock", &available).Error; err != nil {
			return err
		}
		product.Stock = available
		return &InsufficientStockError{ProductID: product.ID, Requested: delta, Available: available}
	}
	product.Stock -= delta
	return nil
}
