package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/internal/store"
)

func setupMux(t *testing.T) *http.ServeMux {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	st := store.New(db, store.WithTxTimeout(5*time.Second))
	log := zaptest.NewLogger(t)
	mux := http.NewServeMux()
	NewProductHandler(services.NewProductService(st, log), log).Register(mux)
	NewClientHandler(services.NewClientService(st, log), log).Register(mux)
	NewInvoiceHandler(services.NewInvoiceService(st, log), log).Register(mux)
	NewDetailHandler(services.NewDetailService(st, log), log).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

func TestSalesFlow(t *testing.T) {
	mux := setupMux(t)

	w := do(t, mux, http.MethodPost, "/api/products", `{"name":"Cuaderno","brand":"Norma","stock":10,"price":"5.00"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[models.Product](t, w)

	w = do(t, mux, http.MethodPost, "/api/clients", `{"ci":"123","first_name":"Ana","last_name":"Rojas","sex":"F"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	client := decode[models.Client](t, w)

	w = do(t, mux, http.MethodPost, "/api/invoices", fmt.Sprintf(`{"client_id":%d,"issued_at":"2024-05-01"}`, client.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decode[models.Invoice](t, w)

	w = do(t, mux, http.MethodPost, "/api/details",
		fmt.Sprintf(`{"invoice_id":%d,"product_id":%d,"quantity":4}`, invoice.ID, product.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	detail := decode[models.InvoiceDetail](t, w)
	assert.Equal(t, "20.00", detail.Subtotal.StringFixed(2))
	assert.Contains(t, w.Body.String(), `"subtotal":"20.00"`)
	assert.Contains(t, w.Body.String(), `"unit_price":"5.00"`)

	w = do(t, mux, http.MethodPut, fmt.Sprintf("/api/details/%d", detail.ID), `{"quantity":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, mux, http.MethodPut, fmt.Sprintf("/api/details/%d", detail.ID), `{"quantity":20}`)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decode[errorBody](t, w)
	assert.Equal(t, "insufficient_stock", body.Error)
	assert.EqualValues(t, 3, body.Details["available"])

	w = do(t, mux, http.MethodGet, fmt.Sprintf("/api/invoices/%d", invoice.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Invoice](t, w)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("35")))
	assert.Contains(t, w.Body.String(), `"total":"35.00"`)
	require.Len(t, got.Details, 1)
	require.NotNil(t, got.Client)

	w = do(t, mux, http.MethodGet, fmt.Sprintf("/api/details/invoice/%d", invoice.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.InvoiceDetail](t, w), 1)

	w = do(t, mux, http.MethodDelete, fmt.Sprintf("/api/clients/%d", client.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, mux, http.MethodDelete, fmt.Sprintf("/api/products/%d", product.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, mux, http.MethodDelete, fmt.Sprintf("/api/invoices/%d", invoice.ID), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, mux, http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[models.Product](t, w).Stock)

	w = do(t, mux, http.MethodDelete, fmt.Sprintf("/api/clients/%d", client.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidationErrors(t *testing.T) {
	mux := setupMux(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		errMsg string
		field  string
	}{
		{"product without name", http.MethodPost, "/api/products", `{"price":1}`, http.StatusBadRequest, "validation_failed", "name"},
		{"product without price", http.MethodPost, "/api/products", `{"name":"x"}`, http.StatusBadRequest, "validation_failed", "price"},
		{"client bad sex", http.MethodPost, "/api/clients", `{"ci":"1","first_name":"a","last_name":"b","sex":"X"}`, http.StatusBadRequest, "validation_failed", "sex"},
		{"detail zero quantity", http.MethodPost, "/api/details", `{"invoice_id":1,"product_id":1,"quantity":0}`, http.StatusBadRequest, "validation_failed", "quantity"},
		{"invoice without client", http.MethodPost, "/api/invoices", `{}`, http.StatusBadRequest, "validation_failed", "client_id"},
		{"invoice bad date", http.MethodPost, "/api/invoices", `{"client_id":1,"issued_at":"yesterday"}`, http.StatusBadRequest, "validation_failed", "issued_at"},
		{"malformed json", http.MethodPost, "/api/products", `{"name":`, http.StatusBadRequest, "invalid_json", ""},
		{"bad id", http.MethodGet, "/api/products/abc", "", http.StatusBadRequest, "invalid_id", "id"},
		{"missing invoice", http.MethodGet, "/api/invoices/42", "", http.StatusNotFound, "invoice_not_found", ""},
		{"detail for missing invoice", http.MethodPost, "/api/details", `{"invoice_id":9,"product_id":9,"quantity":1}`, http.StatusNotFound, "invoice_not_found", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, mux, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode[errorBody](t, w)
			assert.Equal(t, tt.errMsg, body.Error)
			if tt.field != "" {
				assert.Contains(t, body.Details, tt.field)
			}
		})
	}
}

func TestDuplicateCI(t *testing.T) {
	mux := setupMux(t)
	payload := `{"ci":"555","first_name":"Ana","last_name":"Rojas","sex":"F"}`
	require.Equal(t, http.StatusCreated, do(t, mux, http.MethodPost, "/api/clients", payload).Code)

	w := do(t, mux, http.MethodPost, "/api/clients", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, services.ReasonCIExists, body.Details["ci"])
}

func TestPagination(t *testing.T) {
	mux := setupMux(t)
	for i := 0; i < 3; i++ {
		w := do(t, mux, http.MethodPost, "/api/products", fmt.Sprintf(`{"name":"p%d","price":"1.50"}`, i))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(t, mux, http.MethodGet, "/api/products?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items       []models.Product `json:"items"`
		Total       int64            `json:"total"`
		TotalPages  int              `json:"total_pages"`
		CurrentPage int              `json:"current_page"`
	}](t, w)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p2", page.Items[0].Name)

	w = do(t, mux, http.MethodGet, "/api/clients", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"total_pages":0,"current_page":1}`, w.Body.String())
}

func TestPartialProductUpdate(t *testing.T) {
	mux := setupMux(t)
	w := do(t, mux, http.MethodPost, "/api/products", `{"name":"Lápiz","brand":"Faber","stock":4,"price":"0.80"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[models.Product](t, w)

	w = do(t, mux, http.MethodPut, fmt.Sprintf("/api/products/%d", p.ID), `{"stock":9}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Product](t, w)
	assert.Equal(t, 9, updated.Stock)
	assert.Equal(t, "Lápiz", updated.Name)
	assert.Equal(t, "Faber", updated.Brand)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("0.8")))
	assert.Contains(t, w.Body.String(), `"price":"0.80"`)
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2024-02-29")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, ok = parseDate("2024-02-29T10:00:00-04:00")
	assert.True(t, ok)

	d, ok = parseDate("  ")
	assert.True(t, ok)
	assert.True(t, d.IsZero())

	_, ok = parseDate("29/02/2024")
	assert.False(t, ok)
}
