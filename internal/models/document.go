package models

import "time"

const (
	InvoicePrefix      = "FAC-"
	DeliveryNotePrefix = "BL-"
)

// Invoice is derived from an order, at most one per order.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Number  string    `gorm:"size:110;uniqueIndex;not null" json:"number"`
	Date    time.Time `gorm:"not null" json:"date"`
	Paid    bool      `gorm:"not null;default:false" json:"paid"`
}

// DeliveryNote is derived from an order, at most one per order.
type DeliveryNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Number  string    `gorm:"size:110;uniqueIndex;not null" json:"number"`
	Date    time.Time `gorm:"not null" json:"date"`
}

// InvoiceNumber returns the invoice number for an order reference.
func InvoiceNumber(orderRef string) string { return InvoicePrefix + orderRef }

// DeliveryNoteNumber returns the delivery note number for an order reference.
func DeliveryNoteNumber(orderRef string) string { return DeliveryNotePrefix + orderRef }
