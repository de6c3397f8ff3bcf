package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-stock/internal/models"
	"gorm.io/gorm"
)

// GetOrCreateInvoice returns the order's invoice, creating it with number when
// none exists. created is true only for the call that inserted the row.
func (s *Store) GetOrCreateInvoice(ctx context.Context, orderID uint, number string) (*models.Invoice, bool, error) {
	var inv models.Invoice
	created, err := getOrCreate(s.conn(ctx), &inv, orderID, func() error {
		inv = models.Invoice{OrderID: orderID, Number: number, Date: time.Now()}
		return s.conn(ctx).Create(&inv).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("invoice for order %d: %w", orderID, err)
	}
	return &inv, created, nil
}

// GetOrCreateDeliveryNote is GetOrCreateInvoice for delivery notes.
func (s *Store) GetOrCreateDeliveryNote(ctx context.Context, orderID uint, number string) (*models.DeliveryNote, bool, error) {
	var dn models.DeliveryNote
	created, err := getOrCreate(s.conn(ctx), &dn, orderID, func() error {
		dn = models.DeliveryNote{OrderID: orderID, Number: number, Date: time.Now()}
		return s.conn(ctx).Create(&dn).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("delivery note for order %d: %w", orderID, err)
	}
	return &dn, created, nil
}

// getOrCreate reads dest by order_id, calls create on a miss, and re-reads
// when a concurrent request inserted the row first.
func getOrCreate(db *gorm.DB, dest any, orderID uint, create func() error) (bool, error) {
	err := db.Where("order_id = ?", orderID).First(dest).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := create(); err != nil {
		if !errors.Is(translate(err), ErrDuplicate) {
			return false, translate(err)
		}
		if err := db.Where("order_id = ?", orderID).First(dest).Error; err != nil {
			return false, translate(err)
		}
		return false, nil
	}
	return true, nil
}

func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.conn(ctx).First(&inv, id).Error; err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, translate(err))
	}
	return &inv, nil
}

func (s *Store) FindInvoiceByOrder(ctx context.Context, orderID uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.conn(ctx).Where("order_id = ?", orderID).First(&inv).Error; err != nil {
		return nil, fmt.Errorf("invoice for order %d: %w", orderID, translate(err))
	}
	return &inv, nil
}

func (s *Store) FindDeliveryNoteByOrder(ctx context.Context, orderID uint) (*models.DeliveryNote, error) {
	var dn models.DeliveryNote
	if err := s.conn(ctx).Where("order_id = ?", orderID).First(&dn).Error; err != nil {
		return nil, fmt.Errorf("delivery note for order %d: %w", orderID, translate(err))
	}
	return &dn, nil
}

// MarkInvoicePaid sets the paid flag. Marking a paid invoice again is a no-op.
func (s *Store) MarkInvoicePaid(ctx context.Context, id uint) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Paid {
		return inv, nil
	}
	if err := s.conn(ctx).Model(inv).Update("paid", true).Error; err != nil {
		return nil, fmt.Errorf("mark invoice %d paid: %w", id, err)
	}
	inv.Paid = true
	return inv, nil
}
