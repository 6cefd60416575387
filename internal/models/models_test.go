package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSex_Valid(t *testing.T) {
	tests := []struct {
		sex  Sex
		want bool
	}{
		{SexMale, true},
		{SexFemale, true},
		{"X", false},
		{"", false},
		{"m", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.sex), func(t *testing.T) {
			if got := tt.sex.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_FullName(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{"both", Client{FirstName: "Ana", LastName: "Rojas"}, "Ana Rojas"},
		{"first only", Client{FirstName: "Ana"}, "Ana"},
		{"last only", Client{LastName: "Rojas"}, "Rojas"},
		{"empty", Client{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProduct_CanSupply(t *testing.T) {
	p := &Product{Stock: 3}
	if !p.CanSupply(3) {
		t.Error("CanSupply(3) = false with stock 3")
	}
	if p.CanSupply(4) {
		t.Error("CanSupply(4) = true with stock 3")
	}
	if !p.CanSupply(-5) {
		t.Error("returning stock must always be possible")
	}
}

func TestInvoiceDetail_Recompute(t *testing.T) {
	d := &InvoiceDetail{UnitPrice: decimal.RequireFromString("5.00"), Quantity: 7}
	d.Recompute()
	if want := decimal.RequireFromString("35.00"); !d.Subtotal.Equal(want) {
		t.Errorf("Subtotal = %s, want %s", d.Subtotal, want)
	}
}

func TestInvoice_SumSubtotals(t *testing.T) {
	inv := &Invoice{
		Details: []InvoiceDetail{
			{Subtotal: decimal.RequireFromString("20.00")},
			{Subtotal: decimal.RequireFromString("12.50")},
			{Subtotal: decimal.RequireFromString("0.35")},
		},
	}
	if got, want := inv.SumSubtotals(), decimal.RequireFromString("32.85"); !got.Equal(want) {
		t.Errorf("SumSubtotals() = %s, want %s", got, want)
	}
	if got := (&Invoice{}).SumSubtotals(); !got.IsZero() {
		t.Errorf("empty invoice sum = %s, want 0", got)
	}
}

func TestMoneyJSONHasTwoDecimals(t *testing.T) {
	d := InvoiceDetail{
		ID:        3,
		ProductID: 1,
		Product:   &Product{ID: 1, Name: "Lapiz", Price: decimal.RequireFromString("0.8")},
		Quantity:  25,
		UnitPrice: decimal.RequireFromString("0.8"),
		Subtotal:  decimal.RequireFromString("20"),
	}
	inv := Invoice{ID: 2, Total: decimal.Zero, Details: []InvoiceDetail{d}}

	raw, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got struct {
		Total   string `json:"total"`
		Details []struct {
			Quantity  int    `json:"quantity"`
			UnitPrice string `json:"unit_price"`
			Subtotal  string `json:"subtotal"`
			Product   struct {
				Name  string `json:"name"`
				Price string `json:"price"`
			} `json:"product"`
		} `json:"details"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal %s: %v", raw, err)
	}
	if got.Total != "0.00" {
		t.Errorf("total = %q, want 0.00", got.Total)
	}
	if len(got.Details) != 1 {
		t.Fatalf("details = %s", raw)
	}
	line := got.Details[0]
	if line.UnitPrice != "0.80" || line.Subtotal != "20.00" || line.Quantity != 25 {
		t.Errorf("detail = %+v", line)
	}
	if line.Product.Price != "0.80" || line.Product.Name != "Lapiz" {
		t.Errorf("product = %+v", line.Product)
	}

	var back Product
	if err := json.Unmarshal([]byte(`{"id":1,"price":"12.50"}`), &back); err != nil {
		t.Fatalf("Unmarshal product: %v", err)
	}
	if !back.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("price = %s", back.Price)
	}
}
