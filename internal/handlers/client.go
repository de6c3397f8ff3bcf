package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/diewo77/go-stock/validation"
)

type ClientHandler struct {
	store *store.Store
}

func NewClientHandler(s *store.Store) *ClientHandler {
	return &ClientHandler{store: s}
}

type clientInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func (in clientInput) model() (models.Client, validation.Violations) {
	c := models.Client{
		Name:    strings.TrimSpace(in.Name),
		Address: strings.TrimSpace(in.Address),
		Phone:   strings.TrimSpace(in.Phone),
		Email:   strings.TrimSpace(in.Email),
	}
	v := validation.Violations{}
	validation.Required("name", c.Name, v)
	validation.MaxLength("name", c.Name, 100, v)
	validation.MaxLength("phone", c.Phone, 20, v)
	validation.Email("email", c.Email, v)
	return c, v
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	p := listParams(r)
	clients, total, err := h.store.ListClients(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPage(clients, total, p))
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in clientInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, v := in.model()
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	if err := h.store.CreateClient(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in clientInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, v := in.model()
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	c.ID = id
	if err := h.store.UpdateClient(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete refuses clients that still have orders.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeleteClient(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
