package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/go-stock/auth"
	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/i18n"
	"github.com/diewo77/go-stock/internal/logger"
	"github.com/diewo77/go-stock/internal/middleware"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db       *gorm.DB
	sessions *auth.Sessions
}

func NewAuthHandler(db *gorm.DB, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	var user models.User
	err := h.db.WithContext(r.Context()).Preload("Profile").Where("email = ?", in.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, r, err)
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		logger.FromContext(r.Context()).Warn("login refused", zap.String("email", in.Email))
		lang := middleware.LangFrom(r)
		httpx.JSONErrorMessage(w, http.StatusUnauthorized, "invalid_credentials", i18n.T(lang, "invalid_credentials"), nil)
		return
	}

	now := time.Now()
	if err := h.db.WithContext(r.Context()).Model(&user).Update("last_login_at", now).Error; err != nil {
		writeError(w, r, err)
		return
	}
	user.LastLoginAt = &now
	h.sessions.Create(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in operator and their profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.db.WithContext(r.Context()).Preload("Profile.Permissions").First(&user, uid).Error; err != nil {
		writeError(w, r, translateGorm(err))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

const minPasswordLength = 8

type passwordInput struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// ChangePassword replaces the signed-in operator's password after checking the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	v := validation.Violations{}
	validation.Required("current", in.Current, v)
	validation.MinLength("new", in.New, minPasswordLength, v)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, uid).Error; err != nil {
		writeError(w, r, translateGorm(err))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Current)) != nil {
		writeViolations(w, r, validation.Violations{"current": "wrong_password"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.New), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Model(&user).Update("password", string(hash)).Error; err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("password changed", zap.Uint("user_id", user.ID))
	w.WriteHeader(http.StatusNoContent)
}
