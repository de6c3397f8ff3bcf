package store

import (
	"context"
	"fmt"

	"github.com/diewo77/go-stock/internal/models"
)

func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	if err := s.conn(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create client: %w", translate(err))
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, fmt.Errorf("get client %d: %w", id, translate(err))
	}
	return &c, nil
}

// ListClients returns one page of clients matching the query on name or email, ordered by name.
func (s *Store) ListClients(ctx context.Context, p ListParams) ([]models.Client, int64, error) {
	p = p.Normalize()
	q := s.conn(ctx).Model(&models.Client{})
	if p.Query != "" {
		like := likePattern(p.Query)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	var clients []models.Client
	if err := q.Order("name ASC, id ASC").Offset(p.Offset()).Limit(p.Limit).Find(&clients).Error; err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	return clients, total, nil
}

// UpdateClient saves contact fields of an existing client.
func (s *Store) UpdateClient(ctx context.Context, c *models.Client) error {
	res := s.conn(ctx).Model(&models.Client{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":    c.Name,
		"address": c.Address,
		"phone":   c.Phone,
		"email":   c.Email,
	})
	if res.Error != nil {
		return fmt.Errorf("update client %d: %w", c.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update client %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// DeleteClient removes a client that no order references.
func (s *Store) DeleteClient(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var n int64
		if err := tx.db.Model(&models.Order{}).Where("client_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("delete client %d: %d order(s): %w", id, n, ErrReferenced)
		}
		res := tx.db.Delete(&models.Client{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete client %d: %w", id, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete client %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
