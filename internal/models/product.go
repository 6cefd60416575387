package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxPrice is the largest value the decimal(10,2) price column holds.
var MaxPrice = decimal.RequireFromString("99999999.99")

// Product is a sellable item with an inventory counter.
//
// Stock is moved only by the inventory ledger when invoice details change.
// A direct edit through the product API is allowed but sits outside the
// ledger's consistency guarantees.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Brand       string          `gorm:"size:255" json:"brand,omitempty"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// CanSupply reports whether qty more units can be taken from stock.
func (p *Product) CanSupply(qty int) bool {
	return p.Stock-qty >= 0
}
