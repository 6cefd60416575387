package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/store"
)

// InvoiceService manages invoice headers. Totals are never written here
// directly; they follow the details through DetailService.
type InvoiceService struct {
	store *store.Store
	log   *zap.Logger
}

func NewInvoiceService(st *store.Store, log *zap.Logger) *InvoiceService {
	return &InvoiceService{store: st, log: log}
}

// InvoiceChanges lists the header fields an update may change. Nil fields
// are left as they are.
type InvoiceChanges struct {
	IssuedAt *time.Time
	ClientID *uint
}

// Create opens an empty invoice for a client. A zero issuedAt means now.
func (s *InvoiceService) Create(ctx context.Context, clientID uint, issuedAt time.Time) (*models.Invoice, error) {
	if clientID == 0 {
		return nil, &InvalidInputError{Field: "client_id", Reason: "required"}
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	inv := &models.Invoice{ClientID: clientID, IssuedAt: issuedAt, Total: decimal.Zero}
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := find[models.Client](tx, "client", clientID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(inv).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		err = &NotFoundError{Entity: "client", ID: clientID}
	}
	if err != nil {
		return nil, classify("create invoice", err)
	}
	return inv, nil
}

// Get returns an invoice with its client and its details, each with product.
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	db := s.store.DB(ctx).
		Preload("Client").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Details.Product")
	inv, err := find[models.Invoice](db, "invoice", id)
	if err != nil {
		return nil, classify("get invoice", err)
	}
	return inv, nil
}

// List returns a page of invoices, newest first, with their client.
func (s *InvoiceService) List(ctx context.Context, offset, limit int) ([]models.Invoice, int64, error) {
	db := s.store.DB(ctx)
	var total int64
	if err := db.Model(&models.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, classify("count invoices", err)
	}
	invoices := []models.Invoice{}
	err := db.Preload("Client").
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, classify("list invoices", err)
	}
	return invoices, total, nil
}

// ListByClient returns a page of a client's invoices by date, latest first,
// with their details.
func (s *InvoiceService) ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Invoice, int64, error) {
	db := s.store.DB(ctx)
	if _, err := find[models.Client](db, "client", clientID); err != nil {
		return nil, 0, classify("list client invoices", err)
	}
	var total int64
	if err := db.Model(&models.Invoice{}).Where("client_id = ?", clientID).Count(&total).Error; err != nil {
		return nil, 0, classify("count client invoices", err)
	}
	invoices := []models.Invoice{}
	err := db.Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Details.Product").
		Where("client_id = ?", clientID).
		Order("issued_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, classify("list client invoices", err)
	}
	return invoices, total, nil
}

// Update changes the date or the client of an invoice.
func (s *InvoiceService) Update(ctx context.Context, id uint, ch InvoiceChanges) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		inv, err = findLocked[models.Invoice](tx, "invoice", id)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if ch.ClientID != nil && *ch.ClientID != inv.ClientID {
			if _, err := find[models.Client](tx, "client", *ch.ClientID); err != nil {
				return err
			}
			updates["client_id"] = *ch.ClientID
			inv.ClientID = *ch.ClientID
		}
		if ch.IssuedAt != nil && !ch.IssuedAt.IsZero() {
			updates["issued_at"] = *ch.IssuedAt
			inv.IssuedAt = *ch.IssuedAt
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Invoice{ID: inv.ID}).Updates(updates).Error
	})
	if err != nil {
		return nil, classify("update invoice", err)
	}
	return inv, nil
}

// Delete removes an invoice and its details, returning every detail's
// quantity to stock first.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "InvoiceService.Delete", trace.WithAttributes(
		attribute.Int64("invoice.id", int64(id)),
	))

	var restored int
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		restored = 0
		inv, err := findLocked[models.Invoice](tx, "invoice", id)
		if err != nil {
			return err
		}
		var details []models.InvoiceDetail
		if err := tx.Where("invoice_id = ?", inv.ID).Find(&details).Error; err != nil {
			return err
		}

		// one Reserve per product, in id order, so lock order is stable
		returned := map[uint]int{}
		for _, d := range details {
			returned[d.ProductID] += d.Quantity
		}
		productIDs := make([]uint, 0, len(returned))
		for pid := range returned {
			productIDs = append(productIDs, pid)
		}
		sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

		for _, pid := range productIDs {
			product, err := findLocked[models.Product](tx, "product", pid)
			if err != nil {
				return err
			}
			if err := Reserve(tx, product, -returned[pid]); err != nil {
				return err
			}
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceDetail{}).Error; err != nil {
			return err
		}
		restored = len(details)
		return tx.Delete(&models.Invoice{}, inv.ID).Error
	})
	err = classify("delete invoice", err)
	endSpan(span, err)
	if err != nil {
		return err
	}
	s.log.Info("invoice deleted", zap.Uint("invoice_id", id), zap.Int("details", restored))
	return nil
}

// applyDelta moves an invoice total by amount. It is only called from
// transactions that already hold the invoice row lock and change a detail in
// the same step.
func applyDelta(tx *gorm.DB, inv *models.Invoice, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	total := inv.Total.Add(amount)
	if total.GreaterThan(models.MaxAmount) {
		return &InvalidInputError{Field: "total", Reason: "out_of_range"}
	}
	if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("total", total).Error; err != nil {
		return err
	}
	inv.Total = total
	return nil
}
