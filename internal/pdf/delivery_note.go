package pdf

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

const (
	deliveryNameWidth    = 35
	deliveryBottomMargin = 3.0 // cm
	signatureBlock       = 5.0 // cm from the caption line to the bottom of the signature lines
)

// RenderDeliveryNote writes the delivery note layout of d to w.
func RenderDeliveryNote(w io.Writer, d Document) error {
	return buildDeliveryNote(d).output(w)
}

func buildDeliveryNote(d Document) *page {
	p := newPage("Bon de livraison " + d.Number)

	p.font("B", 16)
	p.text(2, 2, "BON DE LIVRAISON")

	p.font("", 10)
	p.text(2, 3, "Bon de livraison N° : "+d.Number)
	p.text(2, 3.5, "N° de commande : "+d.OrderReference)
	p.text(2, 4, "Date : "+d.OrderDate.Format(dateLayout))
	p.text(2, 4.5, "Client : "+d.Client.Name)
	p.text(2, 5, "Adresse : "+d.Client.Address)
	p.text(2, 5.5, "Téléphone : "+d.Client.Phone)

	y := 7.0
	p.font("B", 10)
	p.text(2, y, "Produit")
	p.right(9, y, "Quantité")
	p.right(13, y, fmt.Sprintf("Prix TTC (%s)", d.Currency))
	p.right(17.5, y, fmt.Sprintf("Total TTC (%s)", d.Currency))
	y += rowHeight

	p.font("", 10)
	total := decimal.Zero
	for _, l := range d.Lines {
		y = p.breakIfNeeded(y, deliveryBottomMargin)
		p.text(2, y, truncate(l.Name, deliveryNameWidth))
		p.right(9, y, fmt.Sprint(l.Quantity))
		p.right(13, y, money(l.UnitPriceTTC))
		p.right(17.5, y, money(l.TotalTTC))
		total = total.Add(l.TotalTTC)
		y += rowHeight
	}

	y += 1
	y = p.ensureSpace(y, signatureBlock, 1)
	p.font("B", 11)
	p.text(2, y, "Total TTC de la commande :")
	p.right(17.5, y, fmt.Sprintf("%s %s", money(total), d.Currency))

	y += 2
	p.text(2, y, "Signature Client :")
	p.text(10, y, "Signature Livreurs :")
	y += 3
	p.line(2, y, 8, y)
	p.line(10, y, 16, y)

	return p
}
