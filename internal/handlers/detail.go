package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-sales/httpx"
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/validation"
)

// DetailHandler exposes the line-item engine.
type DetailHandler struct {
	Svc *services.DetailService
	Log *zap.Logger
}

func NewDetailHandler(svc *services.DetailService, log *zap.Logger) *DetailHandler {
	return &DetailHandler{Svc: svc, Log: log}
}

// Register mounts the detail routes on mux.
func (h *DetailHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/details", h.Create)
	mux.HandleFunc("GET /api/details/invoice/{invoiceId}", h.ListByInvoice)
	mux.HandleFunc("GET /api/details/{id}", h.Get)
	mux.HandleFunc("PUT /api/details/{id}", h.Update)
	mux.HandleFunc("DELETE /api/details/{id}", h.Delete)
}

func (h *DetailHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		InvoiceID uint `json:"invoice_id"`
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}

	v := make(validation.Violations)
	if in.InvoiceID == 0 {
		v["invoice_id"] = "required"
	}
	if in.ProductID == 0 {
		v["product_id"] = "required"
	}
	validation.PositiveInt("quantity", in.Quantity, v)
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	d, err := h.Svc.Create(r.Context(), in.InvoiceID, in.ProductID, in.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *DetailHandler) ListByInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := pathID(w, r, "invoiceId")
	if !ok {
		return
	}
	details, err := h.Svc.ListByInvoice(r.Context(), invoiceID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *DetailHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DetailHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}
	v := make(validation.Violations)
	validation.PositiveInt("quantity", in.Quantity, v)
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	d, err := h.Svc.Update(r.Context(), id, in.Quantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DetailHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
