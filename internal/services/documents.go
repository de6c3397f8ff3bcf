package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/diewo77/go-stock/internal/metrics"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/pdf"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Totals holds an order's amounts. All fields are exact decimals; round only for display.
type Totals struct {
	HT  decimal.Decimal `json:"total_ht"`
	Tax decimal.Decimal `json:"total_tax"`
	TTC decimal.Decimal `json:"total_ttc"`
}

// ComputeTotals returns HT = Σ qty × snapshot price and TTC = HT × (1 + rate).
func ComputeTotals(o *models.Order, rate decimal.Decimal) Totals {
	ht := o.Total()
	ttc := models.WithTax(ht, rate)
	return Totals{HT: ht, Tax: ttc.Sub(ht), TTC: ttc}
}

// Display converts the totals to floats for presentation.
func (t Totals) Display() (ht, tax, ttc float64) {
	return t.HT.Round(2).InexactFloat64(), t.Tax.Round(2).InexactFloat64(), t.TTC.Round(2).InexactFloat64()
}

// DocumentService derives invoices and delivery notes from validated orders.
type DocumentService struct {
	store    *store.Store
	taxRate  decimal.Decimal
	currency string
	logger   *zap.Logger
}

func NewDocumentService(s *store.Store, taxRate decimal.Decimal, currency string, logger *zap.Logger) *DocumentService {
	return &DocumentService{store: s, taxRate: taxRate, currency: currency, logger: logger}
}

func (s *DocumentService) TaxRate() decimal.Decimal { return s.taxRate }

// Totals computes the totals of o at the configured rate.
func (s *DocumentService) Totals(o *models.Order) Totals {
	return ComputeTotals(o, s.taxRate)
}

func (s *DocumentService) validatedOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Validated {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrOrderNotValidated)
	}
	return o, nil
}

// GenerateInvoice returns the order's invoice, creating FAC-<reference> on first call.
func (s *DocumentService) GenerateInvoice(ctx context.Context, orderID uint) (*models.Invoice, bool, error) {
	o, err := s.validatedOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.Invoice != nil {
		return o.Invoice, false, nil
	}
	inv, created, err := s.store.GetOrCreateInvoice(ctx, o.ID, models.InvoiceNumber(o.Reference))
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.DocumentsGeneratedTotal.WithLabelValues("invoice").Inc()
		s.logger.Info("invoice created", zap.Uint("order_id", o.ID), zap.String("number", inv.Number))
	}
	return inv, created, nil
}

// GenerateDeliveryNote returns the order's delivery note, creating BL-<reference> on first call.
func (s *DocumentService) GenerateDeliveryNote(ctx context.Context, orderID uint) (*models.DeliveryNote, bool, error) {
	o, err := s.validatedOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.DeliveryNote != nil {
		return o.DeliveryNote, false, nil
	}
	dn, created, err := s.store.GetOrCreateDeliveryNote(ctx, o.ID, models.DeliveryNoteNumber(o.Reference))
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.DocumentsGeneratedTotal.WithLabelValues("delivery_note").Inc()
		s.logger.Info("delivery note created", zap.Uint("order_id", o.ID), zap.String("number", dn.Number))
	}
	return dn, created, nil
}

// MarkInvoicePaid flags an invoice as paid.
func (s *DocumentService) MarkInvoicePaid(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	return s.store.MarkInvoicePaid(ctx, invoiceID)
}

// RenderInvoicePDF writes the invoice of a validated order, generating the invoice if needed.
func (s *DocumentService) RenderInvoicePDF(ctx context.Context, orderID uint, w io.Writer) (*models.Invoice, error) {
	inv, _, err := s.GenerateInvoice(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := pdf.RenderInvoice(w, s.document(o, inv.Number, inv.Date)); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	metrics.PDFRenderedTotal.WithLabelValues("invoice").Inc()
	return inv, nil
}

// RenderDeliveryNotePDF writes the delivery note of a validated order, generating it if needed.
func (s *DocumentService) RenderDeliveryNotePDF(ctx context.Context, orderID uint, w io.Writer) (*models.DeliveryNote, error) {
	dn, _, err := s.GenerateDeliveryNote(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := pdf.RenderDeliveryNote(w, s.document(o, dn.Number, dn.Date)); err != nil {
		return nil, fmt.Errorf("render delivery note %s: %w", dn.Number, err)
	}
	metrics.PDFRenderedTotal.WithLabelValues("delivery_note").Inc()
	return dn, nil
}

func (s *DocumentService) document(o *models.Order, number string, issued time.Time) pdf.Document {
	totals := s.Totals(o)

	doc := pdf.Document{
		Number:         number,
		OrderReference: o.Reference,
		Date:           issued,
		OrderDate:      o.Date,
		Currency:       s.currency,
		TaxRate:        s.taxRate,
		TotalHT:        totals.HT,
		TotalTax:       totals.Tax,
		TotalTTC:       totals.TTC,
	}
	if o.Client != nil {
		doc.Client = pdf.Party{Name: o.Client.Name, Address: o.Client.Address, Phone: o.Client.Phone, Email: o.Client.Email}
	}
	for i := range o.Items {
		it := &o.Items[i]
		doc.Lines = append(doc.Lines, pdf.Line{
			Name:         it.ProductName(),
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			UnitPriceTTC: it.UnitPriceWithTax(s.taxRate),
			TotalHT:      it.Subtotal(),
			TotalTTC:     it.SubtotalWithTax(s.taxRate),
		})
	}
	return doc
}
