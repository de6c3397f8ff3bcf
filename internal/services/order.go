package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-stock/internal/metrics"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxReferenceProbes bounds the search for a free default reference.
const maxReferenceProbes = 100

// ItemInput is one requested order line. A nil UnitPrice takes the product's current price.
type ItemInput struct {
	ProductID uint
	Quantity  int
	UnitPrice *decimal.Decimal
}

// OrderInput is the data needed to create or edit an order.
type OrderInput struct {
	ClientID  uint
	Reference string
	Date      time.Time
	Note      string
	Items     []ItemInput
}

type OrderService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewOrderService(s *store.Store, logger *zap.Logger) *OrderService {
	return &OrderService{store: s, logger: logger}
}

// NextReference proposes CMD-<count+1>, moving forward past references already taken.
func (s *OrderService) NextReference(ctx context.Context) (string, error) {
	return nextReference(ctx, s.store)
}

func nextReference(ctx context.Context, st *store.Store) (string, error) {
	n, err := st.CountOrders(ctx)
	if err != nil {
		return "", err
	}
	for i := int64(1); i <= maxReferenceProbes; i++ {
		ref := models.GenerateOrderReference(n + i)
		taken, err := st.OrderReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}
	return "", fmt.Errorf("no free order reference after %d attempts", maxReferenceProbes)
}

// CreateOrder stores a new unvalidated order with price snapshots, all in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.GetClient(ctx, in.ClientID); err != nil {
			return err
		}
		items, err := buildItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		ref := strings.TrimSpace(in.Reference)
		if ref == "" {
			if ref, err = nextReference(ctx, tx); err != nil {
				return err
			}
		}
		order = &models.Order{
			Reference: ref,
			ClientID:  in.ClientID,
			Date:      in.Date,
			Note:      in.Note,
			Items:     items,
		}
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	metrics.OrdersCreatedTotal.Inc()
	s.logger.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.Int("items", len(order.Items)),
	)
	return s.store.GetOrder(ctx, order.ID)
}

// UpdateOrder replaces the note and lines of an unvalidated order. The client and reference are kept.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, in OrderInput) (*models.Order, error) {
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Validated {
			return ErrOrderLocked
		}
		items, err := buildItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		if err := tx.UpdateOrderNote(ctx, id, in.Note); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}
	return s.store.GetOrder(ctx, id)
}

// DeleteOrder removes an order without documents. Stock taken by a validated order is not given back.
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.Uint("order_id", id))
	return nil
}

func buildItems(ctx context.Context, tx *store.Store, in []ItemInput) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(in))
	for _, it := range in {
		if it.Quantity < 0 {
			return nil, fmt.Errorf("product %d quantity %d: %w", it.ProductID, it.Quantity, ErrInvalidOrder)
		}
		if it.UnitPrice != nil && it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("product %d negative price: %w", it.ProductID, ErrInvalidOrder)
		}
		ids = append(ids, it.ProductID)
	}
	products, err := tx.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, store.ErrNotFound)
		}
		price := p.UnitPrice
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: it.Quantity, UnitPrice: price})
	}
	return items, nil
}

// IsUserError reports whether err comes from bad input or state rather than infrastructure.
func IsUserError(err error) bool {
	for _, target := range []error{
		store.ErrNotFound, store.ErrReferenced, store.ErrDuplicate, store.ErrInvalidQuantity,
		store.ErrInsufficientStock, ErrOrderLocked, ErrOrderNotValidated, ErrInvalidOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
