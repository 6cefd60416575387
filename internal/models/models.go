// Package models holds the gorm entities of the sales ledger.
package models

// All lists every entity in dependency order, for AutoMigrate and test fixtures.
func All() []any {
	return []any{
		&Client{},
		&Product{},
		&Invoice{},
		&InvoiceDetail{},
	}
}
