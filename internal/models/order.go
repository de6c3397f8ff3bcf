package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a client's purchase request made of line items.
// Validated only moves from false to true, in the same transaction that takes the stock.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reference string `gorm:"size:100;uniqueIndex;not null" json:"reference"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`

	Date        time.Time  `gorm:"not null;index" json:"date"`
	Validated   bool       `gorm:"not null;default:false;index" json:"validated"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	Note        string     `gorm:"type:text" json:"note,omitempty"`

	Items        []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Invoice      *Invoice      `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT" json:"invoice,omitempty"`
	DeliveryNote *DeliveryNote `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT" json:"delivery_note,omitempty"`
}

// Total returns the pre-tax total: the exact sum of item subtotals.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	return total
}

// RequestedQuantities sums requested quantities per product so that
// two lines on the same product are checked against stock together.
func (o *Order) RequestedQuantities() map[uint]int {
	req := make(map[uint]int, len(o.Items))
	for _, it := range o.Items {
		req[it.ProductID] += it.Quantity
	}
	return req
}

// OrderItem is one line of an order. UnitPrice is the product price captured
// when the line was created; later product price changes do not affect it.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID   uint     `gorm:"index;not null" json:"order_id"`
	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`

	Quantity  int             `gorm:"not null;check:chk_order_items_quantity,quantity >= 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}

// Subtotal returns Quantity × UnitPrice.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// UnitPriceWithTax returns the snapshot unit price including tax at rate.
func (i *OrderItem) UnitPriceWithTax(rate decimal.Decimal) decimal.Decimal {
	return WithTax(i.UnitPrice, rate)
}

// SubtotalWithTax is UnitPriceWithTax × Quantity.
func (i *OrderItem) SubtotalWithTax(rate decimal.Decimal) decimal.Decimal {
	return i.UnitPriceWithTax(rate).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// WithTax returns amount × (1 + rate).
func WithTax(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(rate))
}

// ProductName returns the product name, or an empty string when the product is not loaded.
func (i *OrderItem) ProductName() string {
	if i.Product == nil {
		return ""
	}
	return i.Product.Name
}

// GenerateOrderReference formats the default reference of the n-th order, e.g. CMD-00042.
func GenerateOrderReference(n int64) string {
	return fmt.Sprintf("CMD-%05d", n)
}
