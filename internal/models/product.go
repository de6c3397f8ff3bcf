package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item with its current stock level.
// StockQuantity never goes below zero; the check constraint backs the guarded updates in the store.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reference   string          `gorm:"size:50;uniqueIndex;not null" json:"reference"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price"`

	StockQuantity int `gorm:"not null;default:0;check:chk_products_stock_quantity,stock_quantity >= 0" json:"stock_quantity"`
}

// InStock reports whether qty units can be taken from the current stock.
func (p *Product) InStock(qty int) bool {
	return qty <= p.StockQuantity
}

func (p Product) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Reference)
}
