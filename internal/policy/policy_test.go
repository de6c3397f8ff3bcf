package policy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/go-stock/auth"
	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/internal/db"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/services"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	require.NoError(t, db.Seed(conn))
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, email, profile string) uint {
	t.Helper()
	u := models.User{Email: email, Password: "x"}
	if profile != "" {
		var p models.Profile
		require.NoError(t, conn.Where("name = ?", profile).First(&p).Error)
		u.ProfileID = &p.ID
	}
	require.NoError(t, conn.Create(&u).Error)
	return u.ID
}

func TestDBProfileResolver(t *testing.T) {
	conn := openTestDB(t)
	r := NewDBProfileResolver(conn)
	ctx := context.Background()
	wh := createUser(t, conn, "wh@stock.test", "warehouse")
	none := createUser(t, conn, "none@stock.test", "")

	p, err := r.Resolve(ctx, wh)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "warehouse", p.Name())
	assert.True(t, p.HasPermission("order:validate"))
	assert.True(t, p.HasPermission("product:delete"))
	assert.False(t, p.HasPermission("invoice:create"))

	p, err = r.Resolve(ctx, none)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = r.Resolve(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.True(t, r.UserExists(ctx, wh))
	assert.False(t, r.UserExists(ctx, 9999))

	var warehouse models.Profile
	require.NoError(t, conn.Where("name = ?", "warehouse").First(&warehouse).Error)
	for uid, want := range map[uint]uint{wh: warehouse.ID, none: 0, 9999: 0} {
		id, err := r.ProfileID(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, want, id, "user %d", uid)
	}
}

func TestRequirePermission(t *testing.T) {
	conn := openTestDB(t)
	ag := NewAuthGate(conn, time.Minute)
	sales := createUser(t, conn, "sales@stock.test", "sales")
	wh := createUser(t, conn, "wh@stock.test", "warehouse")

	h := ag.RequirePermission(gate.ResourceOrder, gate.ActionValidate)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(uid uint) int {
		req := httptest.NewRequest(http.MethodPost, "/orders/validate", nil)
		if uid != 0 {
			req = req.WithContext(auth.WithUserID(req.Context(), uid))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(0))
	assert.Equal(t, http.StatusForbidden, serve(sales))
	assert.Equal(t, http.StatusNoContent, serve(wh))
}

func TestRequireAdmin(t *testing.T) {
	conn := openTestDB(t)
	ag := NewAuthGate(conn, time.Minute)
	require.NoError(t, db.SeedAdmin(conn, "admin@stock.test", "secret"))
	var admin models.User
	require.NoError(t, conn.Where("email = ?", "admin@stock.test").First(&admin).Error)
	wh := createUser(t, conn, "wh@stock.test", "warehouse")

	h := ag.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for uid, want := range map[uint]int{admin.ID: http.StatusNoContent, wh: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "user %d", uid)
	}
}

func TestOrderPolicy(t *testing.T) {
	conn := openTestDB(t)
	ag := NewAuthGate(conn, time.Minute)
	sales := createUser(t, conn, "sales@stock.test", "sales")
	ctx := auth.WithUserID(context.Background(), sales)

	open := &models.Order{Reference: "CMD-1"}
	locked := &models.Order{Reference: "CMD-2", Validated: true}
	documented := &models.Order{Reference: "CMD-3", Validated: true, Invoice: &models.Invoice{}}

	assert.NoError(t, ag.Authorize(ctx, gate.ActionUpdate, gate.ResourceOrder, open))
	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionUpdate, gate.ResourceOrder, locked), services.ErrOrderLocked)
	assert.NoError(t, ag.Authorize(ctx, gate.ActionDelete, gate.ResourceOrder, locked))
	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionDelete, gate.ResourceOrder, documented), store.ErrReferenced)
	assert.NoError(t, ag.Authorize(ctx, gate.ActionView, gate.ResourceOrder, documented))
}

func TestProfileCacheFollowsAssignment(t *testing.T) {
	conn := openTestDB(t)
	ag := NewAuthGate(conn, time.Hour)
	uid := createUser(t, conn, "u@stock.test", "")
	ctx := auth.WithUserID(context.Background(), uid)

	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionList, gate.ResourceClient, nil), gate.ErrForbidden)

	var sales models.Profile
	require.NoError(t, conn.Where("name = ?", "sales").First(&sales).Error)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", uid).Update("profile_id", sales.ID).Error)

	// The assignment is read on every check.
	assert.NoError(t, ag.Authorize(ctx, gate.ActionList, gate.ResourceClient, nil))
	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionValidate, gate.ResourceOrder, nil), gate.ErrForbidden)

	// The permission set itself stays cached until the profile is dropped.
	var validate models.Permission
	require.NoError(t, conn.Where("resource_type = ? AND action = ?", gate.ResourceOrder, string(gate.ActionValidate)).First(&validate).Error)
	require.NoError(t, conn.Model(&sales).Association("Permissions").Append(&validate))
	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionValidate, gate.ResourceOrder, nil), gate.ErrForbidden)
	ag.Profiles.InvalidateProfile(sales.ID)
	assert.NoError(t, ag.Authorize(ctx, gate.ActionValidate, gate.ResourceOrder, nil))

	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", uid).Update("profile_id", nil).Error)
	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionList, gate.ResourceClient, nil), gate.ErrForbidden)
}
