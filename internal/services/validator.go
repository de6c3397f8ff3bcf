package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diewo77/go-stock/i18n"
	"github.com/diewo77/go-stock/internal/metrics"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/store"
	"go.uber.org/zap"
)

// Failure reasons reported in a Summary.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonNotFound          = "not_found"
)

// Failure describes one order left unvalidated by a batch.
type Failure struct {
	OrderID          uint   `json:"order_id"`
	Reference        string `json:"reference,omitempty"`
	Reason           string `json:"reason"`
	ProductID        uint   `json:"product_id,omitempty"`
	ProductReference string `json:"product_reference,omitempty"`
	ProductName      string `json:"product_name,omitempty"`
	Requested        int    `json:"requested,omitempty"`
	Available        int    `json:"available,omitempty"`
}

// Message renders the failure for an operator.
func (f Failure) Message(lang string) string {
	switch f.Reason {
	case ReasonNotFound:
		return i18n.Tf(lang, "validation.order_not_found", f.OrderID)
	case ReasonInsufficientStock:
		product := f.ProductName
		if f.ProductReference != "" {
			product = fmt.Sprintf("%s (%s)", f.ProductName, f.ProductReference)
		}
		return i18n.Tf(lang, "validation.insufficient_stock", product, f.Reference, f.Requested, f.Available)
	}
	return f.Reason
}

// Summary is the outcome of one batch.
type Summary struct {
	Validated []uint    `json:"validated"`
	Skipped   []uint    `json:"skipped"`
	Failures  []Failure `json:"failures"`
}

// OK reports whether no order failed.
func (s Summary) OK() bool { return len(s.Failures) == 0 }

// Failed returns the ids of failed orders.
func (s Summary) Failed() []uint {
	ids := make([]uint, len(s.Failures))
	for i, f := range s.Failures {
		ids[i] = f.OrderID
	}
	return ids
}

// Message renders one line per failure followed by the totals line.
func (s Summary) Message(lang string) string {
	lines := make([]string, 0, len(s.Failures)+1)
	for _, f := range s.Failures {
		lines = append(lines, f.Message(lang))
	}
	lines = append(lines, i18n.Tf(lang, "validation.summary", len(s.Validated), len(s.Skipped), len(s.Failures)))
	return strings.Join(lines, "\n")
}

// StockShortage aborts an order's transaction when a product cannot cover the requested quantity.
type StockShortage struct {
	ProductID        uint
	ProductReference string
	ProductName      string
	Requested        int
	Available        int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available=%d, requested=%d", e.ProductID, e.Available, e.Requested)
}

// errAlreadyValidated rolls back an order that another request validated first.
var errAlreadyValidated = errors.New("order already validated")

// OrderValidator takes stock for batches of orders.
type OrderValidator struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderValidator(s *store.Store, logger *zap.Logger) *OrderValidator {
	return &OrderValidator{store: s, logger: logger, now: time.Now}
}

type outcome int

const (
	outcomeValidated outcome = iota
	outcomeSkipped
	outcomeFailed
)

// ValidateBatch validates each order independently, in the order given.
//
// Each order runs in its own transaction: stock is checked for every line,
// then decremented and the order flagged, or nothing changes at all. A stock
// shortage or a missing order is reported in the Summary, never as an error.
// The returned error is for infrastructure failures only; the summary then
// covers the orders processed before it.
func (v *OrderValidator) ValidateBatch(ctx context.Context, ids []uint) (Summary, error) {
	start := time.Now()
	defer func() { metrics.ValidationBatchDuration.Observe(time.Since(start).Seconds()) }()

	sum := Summary{Validated: []uint{}, Skipped: []uint{}, Failures: []Failure{}}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		res, failure, err := v.validateOne(ctx, id)
		if err != nil {
			v.logger.Error("order validation aborted", zap.Uint("order_id", id), zap.Error(err))
			return sum, fmt.Errorf("failed to validate order %d: %w", id, err)
		}
		switch res {
		case outcomeValidated:
			sum.Validated = append(sum.Validated, id)
			metrics.OrdersValidatedTotal.Inc()
		case outcomeSkipped:
			sum.Skipped = append(sum.Skipped, id)
			metrics.OrdersSkippedTotal.Inc()
		case outcomeFailed:
			sum.Failures = append(sum.Failures, failure)
			metrics.OrdersValidationFailedTotal.WithLabelValues(failure.Reason).Inc()
			v.logger.Warn("order not validated",
				zap.Uint("order_id", id),
				zap.String("reason", failure.Reason),
				zap.Uint("product_id", failure.ProductID),
				zap.Int("requested", failure.Requested),
				zap.Int("available", failure.Available),
			)
		}
	}

	v.logger.Info("validation batch finished",
		zap.Int("requested", len(ids)),
		zap.Int("validated", len(sum.Validated)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Int("failed", len(sum.Failures)),
		zap.Duration("duration", time.Since(start)),
	)
	return sum, nil
}

func (v *OrderValidator) validateOne(ctx context.Context, id uint) (outcome, Failure, error) {
	var order *models.Order
	err := v.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if order.Validated {
			return errAlreadyValidated
		}

		// Check pass: one read of each product inside the transaction.
		required := order.RequestedQuantities()
		productIDs := make([]uint, 0, len(required))
		for pid := range required {
			productIDs = append(productIDs, pid)
		}
		sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

		products, err := tx.GetProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, pid := range productIDs {
			p, ok := products[pid]
			if !ok {
				return fmt.Errorf("product %d of order %d: %w", pid, id, store.ErrNotFound)
			}
			if !p.InStock(required[pid]) {
				return shortage(p, required[pid])
			}
		}

		// Decrement pass. The guard catches a writer that slipped in after the check.
		for _, pid := range productIDs {
			if err := tx.DecrementStock(ctx, pid, required[pid]); err != nil {
				if errors.Is(err, store.ErrInsufficientStock) {
					current, gerr := tx.GetProduct(ctx, pid)
					if gerr != nil {
						return gerr
					}
					return shortage(current, required[pid])
				}
				return err
			}
		}

		marked, err := tx.MarkValidated(ctx, id, v.now())
		if err != nil {
			return err
		}
		if !marked {
			return errAlreadyValidated
		}
		return nil
	})

	var short *StockShortage
	switch {
	case err == nil:
		v.logger.Info("order validated", zap.Uint("order_id", id), zap.String("reference", order.Reference))
		return outcomeValidated, Failure{}, nil
	case errors.Is(err, errAlreadyValidated):
		return outcomeSkipped, Failure{}, nil
	case errors.As(err, &short):
		return outcomeFailed, Failure{
			OrderID:          id,
			Reference:        order.Reference,
			Reason:           ReasonInsufficientStock,
			ProductID:        short.ProductID,
			ProductReference: short.ProductReference,
			ProductName:      short.ProductName,
			Requested:        short.Requested,
			Available:        short.Available,
		}, nil
	case errors.Is(err, store.ErrNotFound) && order == nil:
		return outcomeFailed, Failure{OrderID: id, Reason: ReasonNotFound}, nil
	}
	return outcomeFailed, Failure{}, err
}

func shortage(p *models.Product, requested int) *StockShortage {
	return &StockShortage{
		ProductID:        p.ID,
		ProductReference: p.Reference,
		ProductName:      p.Name,
		Requested:        requested,
		Available:        p.StockQuantity,
	}
}
