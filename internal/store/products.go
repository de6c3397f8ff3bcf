package store

import (
	"context"
	"fmt"

	"github.com/diewo77/go-stock/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.StockQuantity < 0 {
		return fmt.Errorf("create product: %w", ErrInvalidQuantity)
	}
	if err := s.conn(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create product %q: %w", p.Reference, translate(err))
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, translate(err))
	}
	return &p, nil
}

// GetProducts loads the given products keyed by id. Missing ids are absent from the map.
func (s *Store) GetProducts(ctx context.Context, ids []uint) (map[uint]*models.Product, error) {
	out := make(map[uint]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (s *Store) FindProductByReference(ctx context.Context, ref string) (*models.Product, error) {
	var p models.Product
	if err := s.conn(ctx).Where("reference = ?", ref).First(&p).Error; err != nil {
		return nil, fmt.Errorf("find product %q: %w", ref, translate(err))
	}
	return &p, nil
}

// ListProducts returns one page of products matching reference or name, ordered by reference.
func (s *Store) ListProducts(ctx context.Context, p ListParams) ([]models.Product, int64, error) {
	p = p.Normalize()
	q := s.conn(ctx).Model(&models.Product{})
	if p.Query != "" {
		like := likePattern(p.Query)
		q = q.Where("LOWER(reference) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	var products []models.Product
	if err := q.Order("reference ASC").Offset(p.Offset()).Limit(p.Limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct saves catalog fields. Stock is changed only through the stock methods.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]any{
		"reference":   p.Reference,
		"name":        p.Name,
		"description": p.Description,
		"unit_price":  p.UnitPrice,
	})
	if res.Error != nil {
		return fmt.Errorf("update product %d: %w", p.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update product %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteProduct removes a product that no order line references.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var n int64
		if err := tx.db.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("delete product %d: %d order line(s): %w", id, n, ErrReferenced)
		}
		res := tx.db.Delete(&models.Product{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete product %d: %w", id, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete product %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// SetStock overwrites the stock level, as in a stock count.
func (s *Store) SetStock(ctx context.Context, id uint, qty int) error {
	if qty < 0 {
		return fmt.Errorf("set stock of product %d to %d: %w", id, qty, ErrInvalidQuantity)
	}
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", id).Update("stock_quantity", qty)
	if res.Error != nil {
		return fmt.Errorf("set stock of product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set stock of product %d: %w", id, ErrNotFound)
	}
	return nil
}

// AdjustStock adds delta (which may be negative) to the stock. A decrease
// below zero is refused with ErrInsufficientStock and nothing changes.
func (s *Store) AdjustStock(ctx context.Context, id uint, delta int) error {
	if delta < 0 {
		return s.DecrementStock(ctx, id, -delta)
	}
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust stock of product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("adjust stock of product %d: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementStock takes qty units in one guarded statement. The WHERE clause
// makes the check and the write atomic, so concurrent writers can never push
// the stock below zero.
func (s *Store) DecrementStock(ctx context.Context, id uint, qty int) error {
	if qty < 0 {
		return fmt.Errorf("decrement stock of product %d by %d: %w", id, qty, ErrInvalidQuantity)
	}
	res := s.conn(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("decrement stock of product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProduct(ctx, id); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		return fmt.Errorf("decrement stock of product %d by %d: %w", id, qty, ErrInsufficientStock)
	}
	return nil
}
