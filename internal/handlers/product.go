package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/diewo77/go-sales/httpx"
	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/validation"
)

type ProductHandler struct {
	Svc *services.ProductService
	Log *zap.Logger
}

func NewProductHandler(svc *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{Svc: svc, Log: log}
}

// Register mounts the product routes on mux.
func (h *ProductHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/products", h.Create)
	mux.HandleFunc("GET /api/products", h.List)
	mux.HandleFunc("GET /api/products/{id}", h.Get)
	mux.HandleFunc("PUT /api/products/{id}", h.Update)
	mux.HandleFunc("DELETE /api/products/{id}", h.Delete)
}

type productInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Stock       int             `json:"stock"`
	Price       decimal.Decimal `json:"price"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}

	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.PositiveFloat("price", in.Price.InexactFloat64(), v)
	validation.NonNegativeInt("stock", in.Stock, v)
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	p, err := h.Svc.Create(r.Context(), &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Brand:       in.Brand,
		Stock:       in.Stock,
		Price:       in.Price,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	items, total, err := h.Svc.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(items, total, page, limit))
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Brand       *string          `json:"brand"`
		Stock       *int             `json:"stock"`
		Price       *decimal.Decimal `json:"price"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}

	v := make(validation.Violations)
	if in.Name != nil {
		validation.MaxLen("name", *in.Name, 255, v)
	}
	if in.Stock != nil {
		validation.NonNegativeInt("stock", *in.Stock, v)
	}
	if in.Price != nil && !in.Price.IsZero() {
		validation.PositiveFloat("price", in.Price.InexactFloat64(), v)
	}
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	p, err := h.Svc.Update(r.Context(), id, services.ProductChanges{
		Name:        in.Name,
		Description: in.Description,
		Brand:       in.Brand,
		Stock:       in.Stock,
		Price:       in.Price,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
