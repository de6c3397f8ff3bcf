package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/go-stock/httpx"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/diewo77/go-stock/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminHandler manages operator accounts and their profiles. Routes are admin only.
type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	var profiles []models.Profile
	if err := h.db.WithContext(r.Context()).Preload("Permissions").Order("name").Find(&profiles).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.db.WithContext(r.Context()).Preload("Profile").Order("email").Find(&users).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type userInput struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	ProfileID *uint  `json:"profile_id"`
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in userInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	if err := h.checkProfile(r, in.ProfileID); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := models.User{Email: in.Email, Name: strings.TrimSpace(in.Name), Password: string(hash), ProfileID: in.ProfileID}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		writeError(w, r, translateGorm(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type assignInput struct {
	ProfileID *uint `json:"profile_id"`
}

// AssignProfile sets or clears (null) a user's profile. The permission cache is
// keyed by profile, so the change applies to the user's next request.
func (h *AdminHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in assignInput
	if err := httpx.Decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.checkProfile(r, in.ProfileID); err != nil {
		writeError(w, r, err)
		return
	}
	res := h.db.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", id).Update("profile_id", in.ProfileID)
	if res.Error != nil {
		writeError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, r, store.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": id, "profile_id": in.ProfileID})
}

func (h *AdminHandler) checkProfile(r *http.Request, id *uint) error {
	if id == nil {
		return nil
	}
	var p models.Profile
	return translateGorm(h.db.WithContext(r.Context()).First(&p, *id).Error)
}

// translateGorm maps gorm errors of handlers that query users and profiles directly.
func translateGorm(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}
