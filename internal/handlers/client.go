package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-sales/httpx"
	"github.com/diewo77/go-sales/internal/models"
	"github.com/diewo77/go-sales/internal/services"
	"github.com/diewo77/go-sales/validation"
)

var sexChoices = []string{string(models.SexMale), string(models.SexFemale)}

type ClientHandler struct {
	Svc *services.ClientService
	Log *zap.Logger
}

func NewClientHandler(svc *services.ClientService, log *zap.Logger) *ClientHandler {
	return &ClientHandler{Svc: svc, Log: log}
}

// Register mounts the client routes on mux.
func (h *ClientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/clients", h.Create)
	mux.HandleFunc("GET /api/clients", h.List)
	mux.HandleFunc("GET /api/clients/{id}", h.Get)
	mux.HandleFunc("PUT /api/clients/{id}", h.Update)
	mux.HandleFunc("DELETE /api/clients/{id}", h.Delete)
}

type clientInput struct {
	CI        string `json:"ci"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Sex       string `json:"sex"`
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in clientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}

	v := make(validation.Violations)
	validation.Required("ci", in.CI, v)
	validation.MaxLen("ci", in.CI, 20, v)
	validation.Required("first_name", in.FirstName, v)
	validation.Required("last_name", in.LastName, v)
	validation.OneOf("sex", in.Sex, sexChoices, v)
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	c, err := h.Svc.Create(r.Context(), &models.Client{
		CI:        in.CI,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Sex:       models.Sex(in.Sex),
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r)
	items, total, err := h.Svc.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(items, total, page, limit))
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in clientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w)
		return
	}

	v := make(validation.Violations)
	validation.MaxLen("ci", in.CI, 20, v)
	if in.Sex != "" {
		validation.OneOf("sex", in.Sex, sexChoices, v)
	}
	if !v.Empty() {
		writeViolations(w, v)
		return
	}

	sex := models.Sex(in.Sex)
	c, err := h.Svc.Update(r.Context(), id, services.ClientChanges{
		CI:        &in.CI,
		FirstName: &in.FirstName,
		LastName:  &in.LastName,
		Sex:       &sex,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
