package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money amounts are rendered as strings with exactly two decimals, whatever
// scale the driver returned them with.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(p), money(p.Price)})
}

func (i Invoice) MarshalJSON() ([]byte, error) {
	type plain Invoice
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain(i), money(i.Total)})
}

func (d InvoiceDetail) MarshalJSON() ([]byte, error) {
	type plain InvoiceDetail
	return json.Marshal(struct {
		plain
		UnitPrice string `json:"unit_price"`
		Subtotal  string `json:"subtotal"`
	}{plain(d), money(d.UnitPrice), money(d.Subtotal)})
}
