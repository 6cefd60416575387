// Package server wires the services and JSON handlers into an http.Handler.
package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-sales/httpx"
	"github.com/diewo77/go-sales/internal/handlers"
	"github.com/diewo77/go-sales/internal/middleware"
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/internal/store"
)

// RouterConfig holds the configured services and handlers of the API.
type RouterConfig struct {
	Store *store.Store
	Log   *zap.Logger

	// Services
	Products *services.ProductService
	Clients  *services.ClientService
	Invoices *services.InvoiceService
	Details  *services.DetailService

	// Handlers
	ProductHandler *handlers.ProductHandler
	ClientHandler  *handlers.ClientHandler
	InvoiceHandler *handlers.InvoiceHandler
	DetailHandler  *handlers.DetailHandler
}

// NewRouterConfig builds every service over st and a handler for each.
func NewRouterConfig(st *store.Store, log *zap.Logger) *RouterConfig {
	cfg := &RouterConfig{
		Store:    st,
		Log:      log,
		Products: services.NewProductService(st, log),
		Clients:  services.NewClientService(st, log),
		Invoices: services.NewInvoiceService(st, log),
		Details:  services.NewDetailService(st, log),
	}
	cfg.ProductHandler = handlers.NewProductHandler(cfg.Products, log)
	cfg.ClientHandler = handlers.NewClientHandler(cfg.Clients, log)
	cfg.InvoiceHandler = handlers.NewInvoiceHandler(cfg.Invoices, log)
	cfg.DetailHandler = handlers.NewDetailHandler(cfg.Details, log)
	return cfg
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(cfg *RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"service": "go-sales", "status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Store.Ping(r.Context()); err != nil {
			cfg.Log.Warn("health check failed", zap.Error(err))
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	cfg.ProductHandler.Register(mux)
	cfg.ClientHandler.Register(mux)
	cfg.InvoiceHandler.Register(mux)
	cfg.DetailHandler.Register(mux)

	return middleware.RequestID(middleware.Logging(cfg.Log)(middleware.Recover(cfg.Log)(mux)))
}
