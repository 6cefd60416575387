package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/diewo77/go-sales/httpx"
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/validation"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// writeError maps a service error to its HTTP status and JSON body.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		stockErr    *services.InsufficientStockError
		inputErr    *services.InvalidInputError
		notFoundErr *services.NotFoundError
		conflictErr *services.ConflictError
	)
	switch {
	case errors.As(err, &stockErr):
		httpx.JSONError(w, http.StatusConflict, "insufficient_stock", map[string]any{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &inputErr):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			validation.Violations{inputErr.Field: inputErr.Reason})
	case errors.As(err, &notFoundErr):
		httpx.JSONError(w, http.StatusNotFound, notFoundErr.Entity+"_not_found", map[string]any{"id": notFoundErr.ID})
	case errors.As(err, &conflictErr):
		httpx.JSONError(w, http.StatusConflict, "conflict", map[string]string{"reason": conflictErr.Reason})
	case errors.Is(err, services.ErrTransient):
		log.Warn("storage unavailable", zap.Error(err))
		httpx.JSONError(w, http.StatusServiceUnavailable, "storage_unavailable", nil)
	default:
		log.Error("unhandled error", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func writeInvalidJSON(w http.ResponseWriter) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
}

func writeViolations(w http.ResponseWriter, v validation.Violations) {
	httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
}

// pathID parses the uint path parameter name. On failure it writes a 400 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", validation.Violations{name: "invalid"})
		return 0, false
	}
	return uint(id), true
}

// pageParams reads page and limit from the query string. Missing or
// malformed values fall back to the defaults.
func pageParams(r *http.Request) (page, limit, offset int) {
	page, limit = defaultPage, defaultLimit
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}
	return page, limit, (page - 1) * limit
}
