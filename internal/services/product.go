package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/store"
)

type ProductService struct {
	store *store.Store
	log   *zap.Logger
}

func NewProductService(st *store.Store, log *zap.Logger) *ProductService {
	return &ProductService{store: st, log: log}
}

// ProductChanges lists the fields an update may change. Nil fields are left
// as they are; Name and Price also ignore empty values.
type ProductChanges struct {
	Name        *string
	Description *string
	Brand       *string
	Stock       *int
	Price       *decimal.Decimal
}

// Create adds a product. Stock defaults to zero.
func (s *ProductService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return nil, &InvalidInputError{Field: "name", Reason: "required"}
	case p.Stock < 0:
		return nil, &InvalidInputError{Field: "stock", Reason: "must_not_be_negative"}
	}
	if err := checkPrice(p.Price); err != nil {
		return nil, err
	}
	if err := s.store.DB(ctx).Create(p).Error; err != nil {
		return nil, classify("create product", err)
	}
	return p, nil
}

// Get returns a product by id.
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := find[models.Product](s.store.DB(ctx), "product", id)
	if err != nil {
		return nil, classify("get product", err)
	}
	return p, nil
}

// List returns a page of products in id order.
func (s *ProductService) List(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	db := s.store.DB(ctx)
	var total int64
	if err := db.Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, 0, classify("count products", err)
	}
	products := []models.Product{}
	if err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, classify("list products", err)
	}
	return products, total, nil
}

// Update applies ch to a product. A new price only affects details created
// afterwards.
func (s *ProductService) Update(ctx context.Context, id uint, ch ProductChanges) (*models.Product, error) {
	if ch.Stock != nil && *ch.Stock < 0 {
		return nil, &InvalidInputError{Field: "stock", Reason: "must_not_be_negative"}
	}
	if ch.Price != nil && !ch.Price.IsZero() {
		if err := checkPrice(*ch.Price); err != nil {
			return nil, err
		}
	}

	var p *models.Product
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		p, err = findLocked[models.Product](tx, "product", id)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if ch.Name != nil && *ch.Name != "" {
			updates["name"] = *ch.Name
			p.Name = *ch.Name
		}
		if ch.Description != nil {
			updates["description"] = *ch.Description
			p.Description = *ch.Description
		}
		if ch.Brand != nil {
			updates["brand"] = *ch.Brand
			p.Brand = *ch.Brand
		}
		if ch.Stock != nil {
			updates["stock"] = *ch.Stock
			p.Stock = *ch.Stock
		}
		if ch.Price != nil && !ch.Price.IsZero() {
			updates["price"] = *ch.Price
			p.Price = *ch.Price
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Product{ID: p.ID}).Updates(updates).Error
	})
	if err != nil {
		return nil, classify("update product", err)
	}
	return p, nil
}

// Delete removes a product that no invoice detail references.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := findLocked[models.Product](tx, "product", id)
		if err != nil {
			return err
		}
		used, err := store.Exists(tx, &models.InvoiceDetail{}, "product_id = ?", p.ID)
		if err != nil {
			return err
		}
		if used {
			return &ConflictError{Reason: "product is used by invoice details"}
		}
		return tx.Delete(&models.Product{}, p.ID).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		err = &ConflictError{Reason: "product is used by invoice details"}
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.log.Info("product delete refused", zap.Uint("product_id", id))
		}
		return classify("delete product", err)
	}
	return nil
}

// checkPrice accepts positive prices with at most two decimals that fit the
// price column.
func checkPrice(price decimal.Decimal) error {
	switch {
	case !price.IsPositive():
		return &InvalidInputError{Field: "price", Reason: "must_be_positive"}
	case !price.Equal(price.Round(2)):
		return &InvalidInputError{Field: "price", Reason: "too_many_decimals"}
	case price.GreaterThan(models.MaxPrice):
		return &InvalidInputError{Field: "price", Reason: "out_of_range"}
	}
	return nil
}
