package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/internal/middleware"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/policy"
	"github.com/diewo77/go-stock/internal/services"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/diewo77/go-stock/validation"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	store     *store.Store
	orders    *services.OrderService
	validator *services.OrderValidator
	docs      *services.DocumentService
	gate      *policy.AuthGate
}

func NewOrderHandler(s *store.Store, orders *services.OrderService, validator *services.OrderValidator, docs *services.DocumentService, ag *policy.AuthGate) *OrderHandler {
	return &OrderHandler{store: s, orders: orders, validator: validator, docs: docs, gate: ag}
}

type itemInput struct {
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type orderInput struct {
	ClientID  uint        `json:"client_id"`
	Reference string      `json:"reference"`
	Date      *time.Time  `json:"date,omitempty"`
	Note      string      `json:"note"`
	Items     []itemInput `json:"items"`
}

func (in orderInput) service(requireClient bool) (services.OrderInput, validation.Violations) {
	v := validation.Violations{}
	if requireClient {
		validation.RequiredID("client_id", in.ClientID, v)
	}
	validation.MaxLength("reference", in.Reference, 100, v)

	out := services.OrderInput{ClientID: in.ClientID, Reference: in.Reference, Note: in.Note}
	if in.Date != nil {
		out.Date = *in.Date
	}
	for i, it := range in.Items {
		field := "items." + strconv.Itoa(i)
		validation.RequiredID(field+".product_id", it.ProductID, v)
		validation.NonNegativeInt(field+".quantity", it.Quantity, v)
		if it.UnitPrice != nil {
			validation.NonNegativeDecimal(field+".unit_price", *it.UnitPrice, v)
		}
		out.Items = append(out.Items, services.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out, v
}

// orderView is an order with its totals at the configured tax rate.
type orderView struct {
	*models.Order
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TotalHT         decimal.Decimal `json:"total_ht"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	TotalTTC        decimal.Decimal `json:"total_ttc"`
	TotalHTDisplay  float64         `json:"total_ht_display"`
	TotalTaxDisplay float64         `json:"total_tax_display"`
	TotalTTCDisplay float64         `json:"total_ttc_display"`
}

func (h *OrderHandler) view(o *models.Order) orderView {
	t := h.docs.Totals(o)
	ht, tax, ttc := t.Display()
	return orderView{
		Order:           o,
		TaxRate:         h.docs.TaxRate(),
		TotalHT:         t.HT,
		TotalTax:        t.Tax,
		TotalTTC:        t.TTC,
		TotalHTDisplay:  ht,
		TotalTaxDisplay: tax,
		TotalTTCDisplay: ttc,
	}
}

// List returns orders newest first. Filters: q (reference), client_id, validated.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.OrderFilter{ListParams: listParams(r)}
	if cid, err := strconv.ParseUint(q.Get("client_id"), 10, 64); err == nil {
		f.ClientID = uint(cid)
	}
	if b, err := strconv.ParseBool(q.Get("validated")); err == nil {
		f.Validated = &b
	}
	orders, total, err := h.store.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]orderView, len(orders))
	for i := range orders {
		views[i] = h.view(&orders[i])
	}
	httpx.JSON(w, http.StatusOK, newPage(views, total, f.ListParams))
}

// New returns the defaults of the creation form.
func (h *OrderHandler) New(w http.ResponseWriter, r *http.Request) {
	ref, err := h.orders.NextReference(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reference": ref, "date": time.Now()})
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in orderInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	svcIn, v := in.service(true)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	o, err := h.orders.CreateOrder(r.Context(), svcIn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/orders/%d", o.ID))
	httpx.JSON(w, http.StatusCreated, h.view(o))
}

func (h *OrderHandler) View(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(o))
}

// Update replaces the note and items. Validated orders answer 409.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), gate.ActionUpdate, gate.ResourceOrder, o); err != nil {
		writeError(w, r, err)
		return
	}
	var in orderInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	svcIn, v := in.service(false)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	updated, err := h.orders.UpdateOrder(r.Context(), o.ID, svcIn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(updated))
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.gate.Authorize(r.Context(), gate.ActionDelete, gate.ResourceOrder, o); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), o.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateInput struct {
	IDs []uint `json:"ids"`
}

type validateResponse struct {
	services.Summary
	Failed  []uint `json:"failed"`
	Message string `json:"message"`
}

// Validate takes stock for the selected orders. Per-order failures are part of the 200 response.
func (h *OrderHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var in validateInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if len(in.IDs) == 0 {
		writeViolations(w, r, validation.Violations{"ids": "required"})
		return
	}
	sum, err := h.validator.ValidateBatch(r.Context(), in.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, validateResponse{
		Summary: sum,
		Failed:  sum.Failed(),
		Message: sum.Message(middleware.LangFrom(r)),
	})
}

func (h *OrderHandler) load(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	o, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return o, true
}
