package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/internal/logger"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/diewo77/go-stock/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductHandler struct {
	store *store.Store
}

func NewProductHandler(s *store.Store) *ProductHandler {
	return &ProductHandler{store: s}
}

type productInput struct {
	Reference     string          `json:"reference"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
}

func (in productInput) model() (models.Product, validation.Violations) {
	p := models.Product{
		Reference:     strings.ToUpper(strings.TrimSpace(in.Reference)),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		UnitPrice:     in.UnitPrice,
		StockQuantity: in.StockQuantity,
	}
	v := validation.Violations{}
	validation.Required("reference", p.Reference, v)
	validation.MaxLength("reference", p.Reference, 50, v)
	validation.Required("name", p.Name, v)
	validation.NonNegativeDecimal("unit_price", p.UnitPrice, v)
	validation.NonNegativeInt("stock_quantity", p.StockQuantity, v)
	return p, v
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	p := listParams(r)
	products, total, err := h.store.ListProducts(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPage(products, total, p))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, v := in.model()
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	if err := h.store.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Update edits catalog fields. The stock_quantity field is ignored; use UpdateStock.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in productInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, v := in.model()
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	p.ID = id
	if err := h.store.UpdateProduct(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondProduct(w, r, id, http.StatusOK)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stockInput struct {
	Quantity *int `json:"quantity"`
	Delta    *int `json:"delta"`
}

// UpdateStock sets the stock with {"quantity":n} or moves it with {"delta":n}.
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in stockInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	switch {
	case in.Quantity != nil && in.Delta == nil:
		v := validation.Violations{}
		validation.NonNegativeInt("quantity", *in.Quantity, v)
		if !v.Empty() {
			writeViolations(w, r, v)
			return
		}
		err = h.store.SetStock(r.Context(), id, *in.Quantity)
	case in.Delta != nil && in.Quantity == nil:
		err = h.store.AdjustStock(r.Context(), id, *in.Delta)
	default:
		writeViolations(w, r, validation.Violations{"quantity": "required"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("stock updated", zap.Uint("product_id", id))
	h.respondProduct(w, r, id, http.StatusOK)
}

func (h *ProductHandler) respondProduct(w http.ResponseWriter, r *http.Request, id uint, status int) {
	p, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, status, p)
}
