package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/go-sales/httpx"
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/validation"
)

// InvoiceHandler serves invoice headers. Line items live under /api/details.
type InvoiceHandler struct {
	Svc *services.InvoiceService
	Log *zap.Logger
}

func NewInvoiceHandler(svc *services.InvoiceService, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc, Log: log}
}

// Register mounts the invoice routes on mux.
func (h *InvoiceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/invoices", h.Create)
	mux.HandleFunc("GET /api/invoices", h.List)
	mux.HandleFunc("GET /api/invoices/client/{clientId}", h.ListByClient)
	mux.HandleFunc("GET /api/invoices/{id}", h.Get)
	mux.HandleFunc("PUT /api/invoices/{id}", h.Update)
	mux.HandleFunc("DELETE /api/invoices/{id}", h.Delete)
}

type invoiceInput struct {
	ClientID uint   `json:"client_id"`
	IssuedAt string `json:"issued_at"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in invoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}

	v := make(validation.Violations)
	if in.ClientID == 0 {
		v["client_id"] = "required"
	}
	issuedAt, ok := parseDate(in.IssuedAt)
	if !ok {
		v["issued_at"] = "invalid_date"
	}
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	inv, err := h.Svc.Create(r.Context(), in.ClientID, issuedAt)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	items, total, err := h.Svc.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(items, total, page, limit))
}

func (h *InvoiceHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientId")
	if !ok {
		return
	}
	page, limit, offset := pageParams(r)
	items, total, err := h.Svc.ListByClient(r.Context(), clientID, offset, limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(items, total, page, limit))
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in invoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}
	issuedAt, ok := parseDate(in.IssuedAt)
	if !ok {
		writeViolations(w, validation.Violations{"issued_at": "invalid_date"})
		return
	}

	var ch services.InvoiceChanges
	if !issuedAt.IsZero() {
		ch.IssuedAt = &issuedAt
	}
	if in.ClientID != 0 {
		ch.ClientID = &in.ClientID
	}
	inv, err := h.Svc.Update(r.Context(), id, ch)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
