package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/store"
)

// DetailService is the line-item engine. Every mutation moves product stock,
// the detail row and the invoice total in one transaction, so after each
// call, successful or not, invoice.total equals the sum of its subtotals.
//
// Rows are locked in the order invoice, detail, product.
type DetailService struct {
	store *store.Store
	log   *zap.Logger
	inst  instruments
}

// NewDetailService creates a DetailService.
func NewDetailService(st *store.Store, log *zap.Logger) *DetailService {
	return &DetailService{store: st, log: log, inst: newInstruments()}
}

// Create adds quantity units of a product to an invoice at the product's
// current price.
func (s *DetailService) Create(ctx context.Context, invoiceID, productID uint, quantity int) (*models.InvoiceDetail, error) {
	ctx, span := tracer.Start(ctx, "DetailService.Create", trace.WithAttributes(
		attribute.Int64("invoice.id", int64(invoiceID)),
		attribute.Int64("product.id", int64(productID)),
		attribute.Int("quantity", quantity),
	))

	if quantity < 1 {
		return nil, s.finish(ctx, span, "create", &InvalidInputError{Field: "quantity", Reason: "must_be_positive"})
	}

	var created *models.InvoiceDetail
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		created = nil
		inv, err := findLocked[models.Invoice](tx, "invoice", invoiceID)
		if err != nil {
			return err
		}
		product, err := findLocked[models.Product](tx, "product", productID)
		if err != nil {
			return err
		}

		d := &models.InvoiceDetail{
			InvoiceID: inv.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		}
		d.Recompute()
		if d.Subtotal.GreaterThan(models.MaxAmount) {
			return &InvalidInputError{Field: "quantity", Reason: "out_of_range"}
		}

		if err := Reserve(tx, product, quantity); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(d).Error; err != nil {
			return err
		}
		if err := applyDelta(tx, inv, d.Subtotal); err != nil {
			return err
		}
		d.Product = product
		created = d
		return nil
	})
	if err = s.finish(ctx, span, "create", err); err != nil {
		return nil, err
	}
	return created, nil
}

// Update changes the quantity of a detail. The unit price recorded at
// creation is kept; only stock, subtotal and the invoice total move.
func (s *DetailService) Update(ctx context.Context, detailID uint, quantity int) (*models.InvoiceDetail, error) {
	ctx, span := tracer.Start(ctx, "DetailService.Update", trace.WithAttributes(
		attribute.Int64("detail.id", int64(detailID)),
		attribute.Int("quantity", quantity),
	))

	if quantity < 1 {
		return nil, s.finish(ctx, span, "update", &InvalidInputError{Field: "quantity", Reason: "must_be_positive"})
	}

	var updated *models.InvoiceDetail
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		updated = nil
		inv, d, product, err := lockDetail(tx, detailID)
		if err != nil {
			return err
		}

		if err := Reserve(tx, product, quantity-d.Quantity); err != nil {
			return err
		}
		oldSubtotal := d.Subtotal
		d.Quantity = quantity
		d.Recompute()
		if d.Subtotal.GreaterThan(models.MaxAmount) {
			return &InvalidInputError{Field: "quantity", Reason: "out_of_range"}
		}
		err = tx.Model(&models.InvoiceDetail{ID: d.ID}).Updates(map[string]any{
			"quantity": d.Quantity,
			"subtotal": d.Subtotal,
		}).Error
		if err != nil {
			return err
		}
		if err := applyDelta(tx, inv, d.Subtotal.Sub(oldSubtotal)); err != nil {
			return err
		}
		d.Product = product
		updated = d
		return nil
	})
	if err = s.finish(ctx, span, "update", err); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a detail, returning its quantity to stock and its subtotal
// from the invoice total.
func (s *DetailService) Delete(ctx context.Context, detailID uint) error {
	ctx, span := tracer.Start(ctx, "DetailService.Delete", trace.WithAttributes(
		attribute.Int64("detail.id", int64(detailID)),
	))

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		inv, d, product, err := lockDetail(tx, detailID)
		if err != nil {
			return err
		}
		if err := Reserve(tx, product, -d.Quantity); err != nil {
			return err
		}
		if err := applyDelta(tx, inv, d.Subtotal.Neg()); err != nil {
			return err
		}
		return tx.Delete(&models.InvoiceDetail{}, d.ID).Error
	})
	return s.finish(ctx, span, "delete", err)
}

// Get returns a detail with its product.
func (s *DetailService) Get(ctx context.Context, detailID uint) (*models.InvoiceDetail, error) {
	d, err := find[models.InvoiceDetail](s.store.DB(ctx).Preload("Product"), "detail", detailID)
	if err != nil {
		return nil, classify("get detail", err)
	}
	return d, nil
}

// ListByInvoice returns the details of an invoice in creation order.
func (s *DetailService) ListByInvoice(ctx context.Context, invoiceID uint) ([]models.InvoiceDetail, error) {
	db := s.store.DB(ctx)
	if _, err := find[models.Invoice](db, "invoice", invoiceID); err != nil {
		return nil, classify("list details", err)
	}
	details := []models.InvoiceDetail{}
	err := db.Preload("Product").
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&details).Error
	if err != nil {
		return nil, classify("list details", err)
	}
	return details, nil
}

// lockDetail locks the invoice owning detailID, then the detail itself, then
// its product. The detail is read again after the invoice lock so its
// quantity and subtotal are current.
func lockDetail(tx *gorm.DB, detailID uint) (*models.Invoice, *models.InvoiceDetail, *models.Product, error) {
	unlocked, err := find[models.InvoiceDetail](tx, "detail", detailID)
	if err != nil {
		return nil, nil, nil, err
	}
	inv, err := findLocked[models.Invoice](tx, "invoice", unlocked.InvoiceID)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := findLocked[models.InvoiceDetail](tx, "detail", detailID)
	if err != nil {
		return nil, nil, nil, err
	}
	product, err := findLocked[models.Product](tx, "product", d.ProductID)
	if err != nil {
		return nil, nil, nil, err
	}
	return inv, d, product, nil
}

// finish classifies err, records it on span and the metrics, and ends span.
func (s *DetailService) finish(ctx context.Context, span trace.Span, op string, err error) error {
	err = classify(op+" detail", err)
	defer endSpan(span, err)

	if err == nil {
		s.inst.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		return nil
	}
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		s.inst.rejections.Add(ctx, 1)
		s.log.Info("stock reservation rejected",
			zap.String("op", op),
			zap.Uint("product_id", stockErr.ProductID),
			zap.Int("requested", stockErr.Requested),
			zap.Int("available", stockErr.Available),
		)
	case errors.Is(err, ErrTransient):
		s.log.Warn("detail mutation rolled back",
			zap.String("op", op), zap.Bool("timeout", store.IsTimeout(err)), zap.Error(err))
	default:
		s.log.Debug("detail mutation rejected", zap.String("op", op), zap.Error(err))
	}
	return err
}
