package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/store"
)

// ReasonCIExists is the InvalidInputError reason for a duplicate identity document.
const ReasonCIExists = "ci_already_exists"

type ClientService struct {
	store *store.Store
	log   *zap.Logger
}

func NewClientService(st *store.Store, log *zap.Logger) *ClientService {
	return &ClientService{store: st, log: log}
}

// ClientChanges lists the fields an update may change. Nil or empty fields
// are left as they are.
type ClientChanges struct {
	CI        *string
	FirstName *string
	LastName  *string
	Sex       *models.Sex
}

// Create registers a client. The CI must not belong to another client.
func (s *ClientService) Create(ctx context.Context, c *models.Client) (*models.Client, error) {
	c.CI = strings.TrimSpace(c.CI)
	switch {
	case c.CI == "":
		return nil, &InvalidInputError{Field: "ci", Reason: "required"}
	case strings.TrimSpace(c.FirstName) == "":
		return nil, &InvalidInputError{Field: "first_name", Reason: "required"}
	case strings.TrimSpace(c.LastName) == "":
		return nil, &InvalidInputError{Field: "last_name", Reason: "required"}
	case !c.Sex.Valid():
		return nil, &InvalidInputError{Field: "sex", Reason: "invalid_choice"}
	}

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := ensureCIFree(tx, c.CI, 0); err != nil {
			return err
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, classify("create client", ciConflict(err))
	}
	return c, nil
}

// Get returns a client by id.
func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	c, err := find[models.Client](s.store.DB(ctx), "client", id)
	if err != nil {
		return nil, classify("get client", err)
	}
	return c, nil
}

// List returns a page of clients in id order.
func (s *ClientService) List(ctx context.Context, offset, limit int) ([]models.Client, int64, error) {
	db := s.store.DB(ctx)
	var total int64
	if err := db.Model(&models.Client{}).Count(&total).Error; err != nil {
		return nil, 0, classify("count clients", err)
	}
	clients := []models.Client{}
	if err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, classify("list clients", err)
	}
	return clients, total, nil
}

// Update applies ch to a client.
func (s *ClientService) Update(ctx context.Context, id uint, ch ClientChanges) (*models.Client, error) {
	if ch.Sex != nil && *ch.Sex != "" && !ch.Sex.Valid() {
		return nil, &InvalidInputError{Field: "sex", Reason: "invalid_choice"}
	}

	var c *models.Client
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		c, err = findLocked[models.Client](tx, "client", id)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if ch.CI != nil {
			if ci := strings.TrimSpace(*ch.CI); ci != "" && ci != c.CI {
				if err := ensureCIFree(tx, ci, c.ID); err != nil {
					return err
				}
				updates["ci"] = ci
				c.CI = ci
			}
		}
		if ch.FirstName != nil && *ch.FirstName != "" {
			updates["first_name"] = *ch.FirstName
			c.FirstName = *ch.FirstName
		}
		if ch.LastName != nil && *ch.LastName != "" {
			updates["last_name"] = *ch.LastName
			c.LastName = *ch.LastName
		}
		if ch.Sex != nil && *ch.Sex != "" {
			updates["sex"] = *ch.Sex
			c.Sex = *ch.Sex
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Client{ID: c.ID}).Updates(updates).Error
	})
	if err != nil {
		return nil, classify("update client", ciConflict(err))
	}
	return c, nil
}

// Delete removes a client that has no invoices.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := findLocked[models.Client](tx, "client", id)
		if err != nil {
			return err
		}
		used, err := store.Exists(tx, &models.Invoice{}, "client_id = ?", c.ID)
		if err != nil {
			return err
		}
		if used {
			return &ConflictError{Reason: "client has invoices"}
		}
		return tx.Delete(&models.Client{}, c.ID).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		err = &ConflictError{Reason: "client has invoices"}
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.log.Info("client delete refused", zap.Uint("client_id", id))
		}
		return classify("delete client", err)
	}
	return nil
}

func ensureCIFree(tx *gorm.DB, ci string, exceptID uint) error {
	taken, err := store.Exists(tx, &models.Client{}, "ci = ? AND id <> ?", ci, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return &InvalidInputError{Field: "ci", Reason: ReasonCIExists}
	}
	return nil
}

// ciConflict maps a unique-index violation that slipped past ensureCIFree.
func ciConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &InvalidInputError{Field: "ci", Reason: ReasonCIExists}
	}
	return err
}
