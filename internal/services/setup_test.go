package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/store"
)

type fixture struct {
	db       *gorm.DB
	store    *store.Store
	details  *DetailService
	invoices *InvoiceService
	clients  *ClientService
	products *ProductService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_foreign_keys=1"
	return openFixture(t, dsn, 1)
}

// newFileFixture backs the services with a database file shared by several
// connections, so concurrent transactions really contend for it.
func newFileFixture(t *testing.T, conns int) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.db")
	dsn := "file:" + path + "?_foreign_keys=1&_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"
	return openFixture(t, dsn, conns)
}

func openFixture(t *testing.T, dsn string, conns int) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	st := store.New(db, store.WithTxTimeout(5*time.Second), store.WithRetries(2))
	log := zaptest.NewLogger(t)
	return &fixture{
		db:       db,
		store:    st,
		details:  NewDetailService(st, log),
		invoices: NewInvoiceService(st, log),
		clients:  NewClientService(st, log),
		products: NewProductService(st, log),
	}
}

func (f *fixture) product(t *testing.T, stock int, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Cuaderno", Brand: "Norma", Stock: stock, Price: decimal.RequireFromString(price)}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) client(t *testing.T, ci string) *models.Client {
	t.Helper()
	c := &models.Client{CI: ci, FirstName: "Ana", LastName: "Rojas", Sex: models.SexFemale}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) invoice(t *testing.T, clientID uint) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.Create(context.Background(), clientID, time.Time{})
	require.NoError(t, err)
	return inv
}

func (f *fixture) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, productID).Error)
	return p.Stock
}

func (f *fixture) totalOf(t *testing.T, invoiceID uint) decimal.Decimal {
	t.Helper()
	var inv models.Invoice
	require.NoError(t, f.db.First(&inv, invoiceID).Error)
	return inv.Total
}

// assertConsistent checks that the stored total equals the sum of the stored
// subtotals, and that every subtotal is unit price times quantity.
func (f *fixture) assertConsistent(t *testing.T, invoiceID uint) {
	t.Helper()
	var inv models.Invoice
	require.NoError(t, f.db.Preload("Details").First(&inv, invoiceID).Error)
	assert.True(t, inv.Total.Equal(inv.SumSubtotals()),
		"total %s != sum of subtotals %s", inv.Total, inv.SumSubtotals())
	for _, d := range inv.Details {
		assert.True(t, d.Subtotal.Equal(models.LineAmount(d.UnitPrice, d.Quantity)),
			"detail %d subtotal %s != %s x %d", d.ID, d.Subtotal, d.UnitPrice, d.Quantity)
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
