package pdf

import (
	"fmt"
	"io"
)

const (
	invoiceNameWidth    = 25
	invoiceBottomMargin = 2.0 // cm
)

// RenderInvoice writes the invoice layout of d to w.
func RenderInvoice(w io.Writer, d Document) error {
	return buildInvoice(d).output(w)
}

func buildInvoice(d Document) *page {
	p := newPage("Facture " + d.Number)

	p.font("B", 16)
	p.text(2, 2, "FACTURE")

	p.font("", 10)
	p.text(2, 3, "Facture N° : "+d.Number)
	p.text(2, 3.5, "N° de commande : "+d.OrderReference)
	p.text(2, 4, "Date : "+d.OrderDate.Format(dateLayout))
	p.text(2, 4.5, "Client : "+d.Client.Name)
	p.text(2, 5, "Email : "+d.Client.Email)
	p.text(2, 5.5, "Téléphone : "+d.Client.Phone)
	p.text(2, 6, "Adresse : "+d.Client.Address)

	y := 7.5
	p.font("B", 10)
	p.text(2, y, "Produit")
	p.text(9, y, fmt.Sprintf("PU (%s)", d.Currency))
	p.text(12, y, "Qté")
	p.text(14, y, "Total HT")
	p.text(18, y, "Total TTC")
	y += rowHeight

	p.font("", 10)
	for _, l := range d.Lines {
		y = p.breakIfNeeded(y, invoiceBottomMargin)
		p.text(2, y, truncate(l.Name, invoiceNameWidth))
		p.right(11, y, money(l.UnitPrice))
		p.right(13, y, fmt.Sprint(l.Quantity))
		p.right(17, y, money(l.TotalHT))
		p.right(20, y, money(l.TotalTTC))
		y += rowHeight
	}

	y += 1
	y = p.ensureSpace(y, 1.2, invoiceBottomMargin)
	p.font("B", 11)
	p.right(17, y, fmt.Sprintf("TOTAL HT : %s %s", money(d.TotalHT), d.Currency))
	y += 0.6
	p.right(17, y, fmt.Sprintf("TVA (%s) : %s %s", percent(d.TaxRate), money(d.TotalTax), d.Currency))
	y += 0.6
	p.right(17, y, fmt.Sprintf("TOTAL TTC : %s %s", money(d.TotalTTC), d.Currency))

	return p
}
