package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/go-stock/auth"
	"github.com/diewo77/go-stock/internal/config"
	"github.com/diewo77/go-stock/internal/db"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@stock.test"
	adminPassword = "s3cret-admin"
)

func newTestApp(t *testing.T) (*App, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	require.NoError(t, db.Seed(conn))
	require.NoError(t, db.SeedAdmin(conn, adminEmail, adminPassword))

	cfg := &config.Config{App: config.AppConfig{
		Dev:           true,
		TaxRate:       decimal.RequireFromString("0.20"),
		Currency:      "MAD",
		SessionSecret: "test-secret",
	}}
	return NewApp(conn, cfg, zap.NewNop()), conn
}

// client replays the session cookie of its last login.
type client struct {
	t       *testing.T
	app     *App
	session *http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en")
	if c.session != nil {
		req.AddCookie(c.session)
	}
	rec := httptest.NewRecorder()
	c.app.ServeHTTP(rec, req)
	return rec
}

func (c *client) login(email, password string) {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/login", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == auth.CookieName {
			c.session = ck
		}
	}
	require.NotNil(c.t, c.session)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]any](t, rec)["error"].(string)
}

func adminClient(t *testing.T) (*client, *gorm.DB) {
	app, conn := newTestApp(t)
	c := &client{t: t, app: app}
	c.login(adminEmail, adminPassword)
	return c, conn
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, app: app}

	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, app: app}

	for _, path := range []string{"/clients", "/products", "/orders", "/me", "/admin/users"} {
		rec := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, app: app}

	rec := c.do(http.MethodPost, "/login", map[string]string{"email": adminEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))

	rec = c.do(http.MethodPost, "/login", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginMeLogout(t *testing.T) {
	c, _ := adminClient(t)

	rec := c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[models.User](t, rec)
	assert.Equal(t, adminEmail, me.Email)
	require.NotNil(t, me.Profile)
	assert.Equal(t, "admin", me.Profile.Name)

	rec = c.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChangePassword(t *testing.T) {
	c, _ := adminClient(t)

	rec := c.do(http.MethodPut, "/me/password", map[string]string{"current": "wrong", "new": "nouveau-mot"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody[map[string]any](t, rec)["details"], "current")

	rec = c.do(http.MethodPut, "/me/password", map[string]string{"current": adminPassword, "new": "court"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPut, "/me/password", map[string]string{"current": adminPassword, "new": "nouveau-mot"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	fresh := &client{t: t, app: c.app}
	rec = fresh.do(http.MethodPost, "/login", map[string]string{"email": adminEmail, "password": adminPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	fresh.login(adminEmail, "nouveau-mot")
}

func TestOrderLifecycle(t *testing.T) {
	c, _ := adminClient(t)

	rec := c.do(http.MethodPost, "/clients", map[string]string{"name": "Épicerie Centrale", "email": "achat@epicerie.test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cl := decodeBody[models.Client](t, rec)

	rec = c.do(http.MethodPost, "/products", map[string]any{"reference": "riz-5", "name": "Riz 5kg", "unit_price": "10.00", "stock_quantity": 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prod := decodeBody[models.Product](t, rec)
	assert.Equal(t, "RIZ-5", prod.Reference)

	rec = c.do(http.MethodGet, "/orders/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CMD-00001", decodeBody[map[string]any](t, rec)["reference"])

	order := map[string]any{"client_id": cl.ID, "items": []map[string]any{{"product_id": prod.ID, "quantity": 3}}}
	rec = c.do(http.MethodPost, "/orders", order)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[models.Order](t, rec)
	assert.Equal(t, fmt.Sprintf("/orders/%d", first.ID), rec.Header().Get("Location"))

	rec = c.do(http.MethodPost, "/orders", order)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[models.Order](t, rec)

	// Documents wait for validation.
	rec = c.do(http.MethodPost, fmt.Sprintf("/orders/%d/invoice", first.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order_not_validated", errorCode(t, rec))

	rec = c.do(http.MethodPost, "/orders/validate", map[string]any{"ids": []uint{first.ID, second.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decodeBody[struct {
		Validated []uint `json:"validated"`
		Failed    []uint `json:"failed"`
		Message   string `json:"message"`
	}](t, rec)
	assert.Equal(t, []uint{first.ID}, sum.Validated)
	assert.Equal(t, []uint{second.ID}, sum.Failed)
	assert.Contains(t, sum.Message, "Insufficient stock for Riz 5kg (RIZ-5)")
	assert.Contains(t, sum.Message, second.Reference)

	rec = c.do(http.MethodGet, fmt.Sprintf("/products/%d", prod.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[models.Product](t, rec).StockQuantity)

	rec = c.do(http.MethodPost, fmt.Sprintf("/orders/%d/invoice", first.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decodeBody[models.Invoice](t, rec)
	assert.Equal(t, "FAC-CMD-00001", inv.Number)

	rec = c.do(http.MethodPost, fmt.Sprintf("/orders/%d/invoice", first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inv.ID, decodeBody[models.Invoice](t, rec).ID)

	rec = c.do(http.MethodGet, fmt.Sprintf("/orders/%d/invoice.pdf", first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "FAC-CMD-00001.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = c.do(http.MethodGet, fmt.Sprintf("/orders/%d/delivery-note.pdf", first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "BL-CMD-00001.pdf")

	rec = c.do(http.MethodPost, fmt.Sprintf("/invoices/%d/paid", inv.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[models.Invoice](t, rec).Paid)

	// A validated order is locked and documented.
	rec = c.do(http.MethodPut, fmt.Sprintf("/orders/%d", first.ID), map[string]any{"items": []map[string]any{{"product_id": prod.ID, "quantity": 1}}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order_locked", errorCode(t, rec))

	rec = c.do(http.MethodDelete, fmt.Sprintf("/orders/%d", first.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "referenced", errorCode(t, rec))

	rec = c.do(http.MethodDelete, fmt.Sprintf("/clients/%d", cl.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodDelete, fmt.Sprintf("/orders/%d", second.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, "/orders?validated=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 1, page["total"])
}

func TestOrderInputValidation(t *testing.T) {
	c, _ := adminClient(t)

	rec := c.do(http.MethodPost, "/orders", map[string]any{"items": []map[string]any{{"product_id": 0, "quantity": -2}}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "validation", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "client_id")
	assert.Contains(t, details, "items.0.quantity")

	rec = c.do(http.MethodPost, "/orders/validate", map[string]any{"ids": []uint{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/orders/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWarehouseProfilePermissions(t *testing.T) {
	admin, conn := adminClient(t)

	var warehouse models.Profile
	require.NoError(t, conn.Where("name = ?", "warehouse").First(&warehouse).Error)
	rec := admin.do(http.MethodPost, "/admin/users", map[string]any{
		"email": "magasin@stock.test", "password": "entrepot", "profile_id": warehouse.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decodeBody[models.User](t, rec)

	w := &client{t: t, app: admin.app}
	w.login("magasin@stock.test", "entrepot")

	rec = w.do(http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = w.do(http.MethodPost, "/orders", map[string]any{"client_id": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorCode(t, rec))

	rec = w.do(http.MethodGet, "/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Clearing the profile takes effect on the next request.
	rec = admin.do(http.MethodPut, fmt.Sprintf("/admin/users/%d/profile", user.ID), map[string]any{"profile_id": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = w.do(http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 1,,7 ")
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 7}, ids)

	_, err = parseIDs("1,x")
	assert.Error(t, err)
	_, err = parseIDs("0")
	assert.Error(t, err)
	_, err = parseIDs(" , ")
	assert.Error(t, err)
}
