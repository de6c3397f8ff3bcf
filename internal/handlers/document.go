package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/internal/services"
)

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// CreateInvoice answers 201 with a new invoice or 200 with the existing one.
func (h *DocumentHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, created, err := h.docs.GenerateInvoice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, createdStatus(created), inv)
}

func (h *DocumentHandler) CreateDeliveryNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dn, created, err := h.docs.GenerateDeliveryNote(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, createdStatus(created), dn)
}

func (h *DocumentHandler) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.docs.MarkInvoicePaid(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// InvoicePDF renders into a buffer first so that a failure can still be answered as JSON.
func (h *DocumentHandler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	inv, err := h.docs.RenderInvoicePDF(r.Context(), id, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, inv.Number, &buf)
}

func (h *DocumentHandler) DeliveryNotePDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	dn, err := h.docs.RenderDeliveryNotePDF(r.Context(), id, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, dn.Number, &buf)
}

func writePDF(w http.ResponseWriter, number string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", number+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
