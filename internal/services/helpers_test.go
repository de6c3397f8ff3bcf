package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/diewo77/go-stock/internal/db"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return store.New(conn)
}

func createClient(t *testing.T, s *store.Store) *models.Client {
	t.Helper()
	c := &models.Client{Name: "Épicerie Centrale", Address: "4 avenue Hassan II", Phone: "0522000000", Email: "achat@epicerie.test"}
	require.NoError(t, s.CreateClient(context.Background(), c))
	return c
}

func createProduct(t *testing.T, s *store.Store, ref, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Reference: ref, Name: "Produit " + ref, UnitPrice: decimal.RequireFromString(price), StockQuantity: stock}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

// createOrder stores an order directly with the given (product, quantity) lines at the product price.
func createOrder(t *testing.T, s *store.Store, c *models.Client, ref string, lines ...line) *models.Order {
	t.Helper()
	o := &models.Order{Reference: ref, ClientID: c.ID}
	for _, l := range lines {
		o.Items = append(o.Items, models.OrderItem{ProductID: l.product.ID, Quantity: l.qty, UnitPrice: l.product.UnitPrice})
	}
	require.NoError(t, s.CreateOrder(context.Background(), o))
	return o
}

type line struct {
	product *models.Product
	qty     int
}

func stockOf(t *testing.T, s *store.Store, id uint) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func isValidated(t *testing.T, s *store.Store, id uint) bool {
	t.Helper()
	o, err := s.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o.Validated
}
