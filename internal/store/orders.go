package store

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-stock/internal/models"
	"gorm.io/gorm"
)

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	ListParams
	ClientID  uint
	Validated *bool
}

func preloadOrder(q *gorm.DB) *gorm.DB {
	return q.Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product").
		Preload("Invoice").
		Preload("DeliveryNote")
}

// CreateOrder inserts the order and its items. Prices must already be snapshotted on the items.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	if err := s.conn(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create order %q: %w", o.Reference, translate(err))
	}
	return nil
}

// GetOrder loads an order with its client, items, products and documents.
func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := preloadOrder(s.conn(ctx)).First(&o, id).Error; err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, translate(err))
	}
	return &o, nil
}

func (s *Store) FindOrderByReference(ctx context.Context, ref string) (*models.Order, error) {
	var o models.Order
	if err := preloadOrder(s.conn(ctx)).Where("reference = ?", ref).First(&o).Error; err != nil {
		return nil, fmt.Errorf("find order %q: %w", ref, translate(err))
	}
	return &o, nil
}

// OrderReferenceExists reports whether ref is already used.
func (s *Store) OrderReferenceExists(ctx context.Context, ref string) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.Order{}).Where("reference = ?", ref).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListOrders returns one page of orders, most recent first.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	p := f.ListParams.Normalize()
	q := s.conn(ctx).Model(&models.Order{})
	if p.Query != "" {
		q = q.Where("LOWER(reference) LIKE ?", likePattern(p.Query))
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Validated != nil {
		q = q.Where("validated = ?", *f.Validated)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	var orders []models.Order
	if err := preloadOrder(q).Order("date DESC, id DESC").Offset(p.Offset()).Limit(p.Limit).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.Order{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// ListItemsByOrder returns the order's lines in insertion order, with products.
func (s *Store) ListItemsByOrder(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := s.conn(ctx).Preload("Product").Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items of order %d: %w", orderID, err)
	}
	return items, nil
}

// UpdateOrderNote changes the free-text note.
func (s *Store) UpdateOrderNote(ctx context.Context, id uint, note string) error {
	res := s.conn(ctx).Model(&models.Order{}).Where("id = ?", id).Update("note", note)
	if res.Error != nil {
		return fmt.Errorf("update order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update order %d: %w", id, ErrNotFound)
	}
	return nil
}

// ReplaceItems swaps all lines of an order.
func (s *Store) ReplaceItems(ctx context.Context, orderID uint, items []models.OrderItem) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("replace items of order %d: %w", orderID, err)
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = orderID
		}
		if err := tx.db.Create(&items).Error; err != nil {
			return fmt.Errorf("replace items of order %d: %w", orderID, translate(err))
		}
		return nil
	})
}

// MarkValidated flips the validated flag. It matches only unvalidated rows and
// reports whether this call made the transition.
func (s *Store) MarkValidated(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND validated = ?", id, false).
		Updates(map[string]any{"validated": true, "validated_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("mark order %d validated: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteOrder removes an order and its lines. Orders with an invoice or a
// delivery note are kept and ErrReferenced is returned.
func (s *Store) DeleteOrder(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var invoices, notes int64
		if err := tx.db.Model(&models.Invoice{}).Where("order_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if err := tx.db.Model(&models.DeliveryNote{}).Where("order_id = ?", id).Count(&notes).Error; err != nil {
			return err
		}
		if invoices+notes > 0 {
			return fmt.Errorf("delete order %d: documents exist: %w", id, ErrReferenced)
		}
		if err := tx.db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("delete items of order %d: %w", id, err)
		}
		res := tx.db.Delete(&models.Order{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete order %d: %w", id, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete order %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
