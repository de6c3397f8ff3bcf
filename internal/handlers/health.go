package handlers

import (
	"net/http"

	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/internal/db"
	"github.com/diewo77/go-stock/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(conn *gorm.DB) *HealthHandler {
	return &HealthHandler{db: conn}
}

// Health is the liveness probe.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks the database.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(h.db.WithContext(r.Context())); err != nil {
		logger.FromContext(r.Context()).Warn("readiness check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
