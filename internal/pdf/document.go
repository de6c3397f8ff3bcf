// Package pdf renders invoices and delivery notes as A4 documents.
package pdf

import (
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "02/01/2006 15:04"
	rowHeight  = 0.5 // cm between table rows
	fontFamily = "Helvetica"
)

// Party is the client block printed in the header.
type Party struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// Line is one table row. Amounts are exact and rounded only when printed.
type Line struct {
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	UnitPriceTTC decimal.Decimal
	TotalHT      decimal.Decimal
	TotalTTC     decimal.Decimal
}

// Document carries everything both layouts print.
type Document struct {
	Number         string
	OrderReference string
	Date           time.Time
	OrderDate      time.Time
	Client         Party
	Lines          []Line
	Currency       string
	TaxRate        decimal.Decimal
	TotalHT        decimal.Decimal
	TotalTax       decimal.Decimal
	TotalTTC       decimal.Decimal
}

// page wraps gofpdf with top-left millimetre coordinates and cp1252 text.
type page struct {
	f      *gofpdf.Fpdf
	tr     func(string) string
	height float64
}

func newPage(title string) *page {
	f := gofpdf.New("P", "mm", "A4", "")
	f.SetAutoPageBreak(false, 0)
	f.SetTitle(title, true)
	f.SetCreator("go-stock", true)
	f.AddPage()
	_, h := f.GetPageSize()
	return &page{f: f, tr: f.UnicodeTranslatorFromDescriptor(""), height: h}
}

func (p *page) font(style string, size float64) {
	p.f.SetFont(fontFamily, style, size)
}

// text draws s with its baseline at (x, y), both in cm from the top-left corner.
func (p *page) text(x, y float64, s string) {
	p.f.Text(x*10, y*10, p.tr(s))
}

// right draws s ending at x.
func (p *page) right(x, y float64, s string) {
	s = p.tr(s)
	p.f.Text(x*10-p.f.GetStringWidth(s), y*10, s)
}

func (p *page) line(x1, y1, x2, y2 float64) {
	p.f.Line(x1*10, y1*10, x2*10, y2*10)
}

// breakIfNeeded starts a new page when y (cm) is within marginCM of the bottom,
// returning the y to continue at.
func (p *page) breakIfNeeded(y, marginCM float64) float64 {
	if y*10 <= p.height-marginCM*10 {
		return y
	}
	p.f.AddPage()
	p.font("", 10)
	return 3
}

// ensureSpace starts a new page when a block of need cm starting at y would
// cross the bottom margin, returning the y to draw the block at.
func (p *page) ensureSpace(y, need, marginCM float64) float64 {
	if (y+need)*10 <= p.height-marginCM*10 {
		return y
	}
	p.f.AddPage()
	return 3
}

func (p *page) output(w io.Writer) error {
	if p.f.Err() {
		return p.f.Error()
	}
	return p.f.Output(w)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).String() + "%"
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
