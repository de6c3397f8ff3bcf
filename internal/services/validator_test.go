package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-stock/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestValidateBatchSufficientStock(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "10.00", 10)
	b := createProduct(t, s, "B", "2.50", 4)
	o := createOrder(t, s, c, "CMD-1", line{a, 3}, line{b, 4})

	v := NewOrderValidator(s, zap.NewNop())
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return at }

	sum, err := v.ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{o.ID}, sum.Validated)
	assert.Empty(t, sum.Skipped)
	assert.True(t, sum.OK())

	assert.Equal(t, 7, stockOf(t, s, a.ID))
	assert.Equal(t, 0, stockOf(t, s, b.ID))

	got, err := s.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Validated)
	require.NotNil(t, got.ValidatedAt)
	assert.True(t, got.ValidatedAt.Equal(at))
}

func TestValidateBatchInsufficientStockChangesNothing(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "10.00", 10)
	b := createProduct(t, s, "B", "5.00", 1)
	o := createOrder(t, s, c, "CMD-1", line{a, 3}, line{b, 2})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	assert.Empty(t, sum.Validated)
	require.Len(t, sum.Failures, 1)

	f := sum.Failures[0]
	assert.Equal(t, o.ID, f.OrderID)
	assert.Equal(t, "CMD-1", f.Reference)
	assert.Equal(t, ReasonInsufficientStock, f.Reason)
	assert.Equal(t, b.ID, f.ProductID)
	assert.Equal(t, 2, f.Requested)
	assert.Equal(t, 1, f.Available)

	assert.Equal(t, 10, stockOf(t, s, a.ID), "earlier line must not be decremented")
	assert.Equal(t, 1, stockOf(t, s, b.ID))
	assert.False(t, isValidated(t, s, o.ID))
}

func TestValidateBatchAlreadyValidatedIsNoop(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "10.00", 10)
	o := createOrder(t, s, c, "CMD-1", line{a, 4})
	v := NewOrderValidator(s, zap.NewNop())
	ctx := context.Background()

	_, err := v.ValidateBatch(ctx, []uint{o.ID})
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, s, a.ID))

	sum, err := v.ValidateBatch(ctx, []uint{o.ID})
	require.NoError(t, err)
	assert.Empty(t, sum.Validated)
	assert.Equal(t, []uint{o.ID}, sum.Skipped)
	assert.True(t, sum.OK())
	assert.Equal(t, 6, stockOf(t, s, a.ID))
}

func TestValidateBatchExactStockThenShortage(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "1.00", 5)
	first := createOrder(t, s, c, "CMD-1", line{a, 5})
	second := createOrder(t, s, c, "CMD-2", line{a, 1})
	v := NewOrderValidator(s, zap.NewNop())

	sum, err := v.ValidateBatch(context.Background(), []uint{first.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, sum.Validated)
	assert.Equal(t, 0, stockOf(t, s, a.ID))

	sum, err = v.ValidateBatch(context.Background(), []uint{second.ID})
	require.NoError(t, err)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, 0, sum.Failures[0].Available)
	assert.False(t, isValidated(t, s, second.ID))
}

func TestValidateBatchIsolatesFailures(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "3.00", 10)
	b := createProduct(t, s, "B", "4.00", 1)
	o1 := createOrder(t, s, c, "CMD-1", line{a, 2})
	o2 := createOrder(t, s, c, "CMD-2", line{a, 1}, line{b, 5})
	o3 := createOrder(t, s, c, "CMD-3", line{a, 3})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o1.ID, o2.ID, o3.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{o1.ID, o3.ID}, sum.Validated)
	assert.Equal(t, []uint{o2.ID}, sum.Failed())
	assert.False(t, sum.OK())

	assert.Equal(t, 5, stockOf(t, s, a.ID))
	assert.Equal(t, 1, stockOf(t, s, b.ID))
	assert.False(t, isValidated(t, s, o2.ID))

	msg := sum.Message("fr")
	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "CMD-2")
	assert.Contains(t, lines[0], "Produit B (B)")
	assert.Contains(t, lines[0], "demandé 5, disponible 1")
	assert.Contains(t, lines[1], "2 validée(s)")

	en := sum.Message("en")
	assert.Contains(t, en, "Insufficient stock for Produit B (B) (order CMD-2: requested 5, available 1)")
}

func TestValidateBatchEmptyOrder(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	o := createOrder(t, s, c, "CMD-EMPTY")

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{o.ID}, sum.Validated)
	assert.True(t, isValidated(t, s, o.ID))
}

func TestValidateBatchZeroQuantityLine(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "3.00", 0)
	o := createOrder(t, s, c, "CMD-1", line{a, 0})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{o.ID}, sum.Validated)
	assert.Equal(t, 0, stockOf(t, s, a.ID))
}

func TestValidateBatchAggregatesSameProduct(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "3.00", 5)
	// Each line fits on its own, together they need 6.
	o := createOrder(t, s, c, "CMD-1", line{a, 3}, line{a, 3})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, 6, sum.Failures[0].Requested)
	assert.Equal(t, 5, sum.Failures[0].Available)
	assert.Equal(t, 5, stockOf(t, s, a.ID))

	ok := createOrder(t, s, c, "CMD-2", line{a, 2}, line{a, 3})
	sum, err = NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{ok.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{ok.ID}, sum.Validated)
	assert.Equal(t, 0, stockOf(t, s, a.ID))
}

func TestValidateBatchUnknownOrder(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "3.00", 5)
	o := createOrder(t, s, c, "CMD-1", line{a, 1})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{999, o.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{o.ID}, sum.Validated)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, uint(999), sum.Failures[0].OrderID)
	assert.Equal(t, ReasonNotFound, sum.Failures[0].Reason)
	assert.Equal(t, "Order 999 not found", sum.Failures[0].Message("en"))
}

func TestValidateBatchDuplicateIDs(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "3.00", 5)
	o := createOrder(t, s, c, "CMD-1", line{a, 2})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID, o.ID, o.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{o.ID}, sum.Validated)
	assert.Empty(t, sum.Skipped)
	assert.Equal(t, 3, stockOf(t, s, a.ID))
}

func TestValidateBatchEmpty(t *testing.T) {
	s := newTestStore(t)
	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, sum.OK())

	raw, err := json.Marshal(sum)
	require.NoError(t, err)
	assert.JSONEq(t, `{"validated":[],"skipped":[],"failures":[]}`, string(raw))
}

func TestValidateBatchCancelledContext(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "3.00", 5)
	o := createOrder(t, s, c, "CMD-1", line{a, 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(ctx, []uint{o.ID})
	assert.Error(t, err)
	assert.Equal(t, 5, stockOf(t, s, a.ID))
	assert.False(t, isValidated(t, s, o.ID))
}

// beforeUpdate runs fn inside the transaction just before the n-th UPDATE on table.
func beforeUpdate(t *testing.T, s *store.Store, table string, n int, fn func(db *gorm.DB)) {
	t.Helper()
	seen := 0
	err := s.DB().Callback().Update().Before("gorm:update").Register("test:before_"+table, func(db *gorm.DB) {
		if db.Statement.Schema == nil || db.Statement.Schema.Table != table {
			return
		}
		seen++
		if seen == n {
			fn(db)
		}
	})
	require.NoError(t, err)
}

func TestValidateBatchConcurrentStockChangeRollsBack(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "1.00", 10)
	b := createProduct(t, s, "B", "1.00", 10)
	o := createOrder(t, s, c, "CMD-1", line{a, 3}, line{b, 2})

	// Another writer takes B down to 1 between the check and B's decrement.
	beforeUpdate(t, s, "products", 2, func(db *gorm.DB) {
		_, err := db.Statement.ConnPool.ExecContext(db.Statement.Context,
			"UPDATE products SET stock_quantity = ? WHERE id = ?", 1, b.ID)
		require.NoError(t, err)
	})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	assert.Empty(t, sum.Validated)
	require.Len(t, sum.Failures, 1)
	f := sum.Failures[0]
	assert.Equal(t, ReasonInsufficientStock, f.Reason)
	assert.Equal(t, b.ID, f.ProductID)
	assert.Equal(t, 2, f.Requested)
	assert.Equal(t, 1, f.Available)

	// A's decrement is rolled back with the rest of the transaction.
	assert.Equal(t, 10, stockOf(t, s, a.ID))
	assert.Equal(t, 10, stockOf(t, s, b.ID))
	assert.False(t, isValidated(t, s, o.ID))
}

func TestValidateBatchConcurrentValidationIsSkipped(t *testing.T) {
	s := newTestStore(t)
	c := createClient(t, s)
	a := createProduct(t, s, "A", "1.00", 10)
	o := createOrder(t, s, c, "CMD-1", line{a, 4})

	// A rival request flags the order first.
	beforeUpdate(t, s, "orders", 1, func(db *gorm.DB) {
		_, err := db.Statement.ConnPool.ExecContext(db.Statement.Context,
			"UPDATE orders SET validated = ? WHERE id = ?", true, o.ID)
		require.NoError(t, err)
	})

	sum, err := NewOrderValidator(s, zap.NewNop()).ValidateBatch(context.Background(), []uint{o.ID})
	require.NoError(t, err)
	assert.Empty(t, sum.Validated)
	assert.Empty(t, sum.Failures)
	assert.Equal(t, []uint{o.ID}, sum.Skipped)
	assert.Equal(t, 10, stockOf(t, s, a.ID))
}
