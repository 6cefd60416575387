package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value the decimal(12,2) subtotal and total
// columns hold.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Invoice is a sale to one client.
//
// Total is a running sum maintained by the line-item engine; it always
// equals the sum of the subtotals of Details.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"client,omitempty"`

	IssuedAt time.Time       `gorm:"not null" json:"issued_at"`
	Total    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`

	// Details are owned by the invoice and deleted with it.
	Details []InvoiceDetail `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"details,omitempty"`
}

// SumSubtotals recomputes the total from the loaded details.
func (i *Invoice) SumSubtotals() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range i.Details {
		sum = sum.Add(d.Subtotal)
	}
	return sum
}

// InvoiceDetail is one product line of an invoice.
//
// UnitPrice is a snapshot of the product price when the line was created;
// later price changes on the product never reach existing lines.
type InvoiceDetail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product,omitempty"`

	Quantity  int             `gorm:"not null;check:chk_invoice_details_quantity,quantity >= 1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// LineAmount returns unitPrice × qty.
func LineAmount(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// Recompute sets Subtotal from the stored UnitPrice and Quantity.
func (d *InvoiceDetail) Recompute() {
	d.Subtotal = LineAmount(d.UnitPrice, d.Quantity)
}
