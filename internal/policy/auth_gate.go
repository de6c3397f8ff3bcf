// Package policy binds the gate package to operator sessions and the database.
package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/go-stock/auth"
	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/httpx"
	"gorm.io/gorm"
)

// AuthGate checks the session user of a request against the gate.
type AuthGate struct {
	Gate     *gate.Gate[uint]
	Profiles *gate.CachedResolver[uint]
	Users    *DBProfileResolver
}

// NewAuthGate caches DB permission sets per profile for cacheTTL and registers
// the order policy. Profile assignments are read on every check.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	users := NewDBProfileResolver(db)
	profiles := gate.NewCachedResolver[uint](users, cacheTTL).WithMembership(users.ProfileID)
	return NewAuthGateWithResolver(profiles, users)
}

func NewAuthGateWithResolver(profiles *gate.CachedResolver[uint], users *DBProfileResolver) *AuthGate {
	g := gate.NewGate[uint](profiles)
	g.Register(gate.ResourceOrder, OrderPolicy{})
	return &AuthGate{Gate: g, Profiles: profiles, Users: users}
}

// Authorize checks the request's user for action on resource (nil for a profile-only check).
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	uid, _ := auth.UserIDFromContext(ctx)
	return ag.Gate.Authorize(ctx, uid, action, resourceType, resource)
}

// RequirePermission answers 401 or 403 unless the user's profile grants resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ag.Authorize(r.Context(), action, resourceType, nil); err != nil {
				WriteAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets "*:*" holders through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				WriteAuthError(w, gate.ErrUnauthenticated)
				return
			}
			if !ag.Gate.IsAdmin(r.Context(), uid) {
				WriteAuthError(w, gate.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteAuthError maps gate errors to 401, 403 or 500.
func WriteAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gate.ErrUnauthenticated):
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, gate.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
