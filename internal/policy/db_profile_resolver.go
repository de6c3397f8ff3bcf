package policy

import (
	"context"
	"errors"

	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/internal/models"
	"gorm.io/gorm"
)

// DBProfileResolver loads an operator's profile and permissions from the database.
type DBProfileResolver struct {
	db *gorm.DB
}

func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{db: db}
}

// Resolve returns nil, nil for an unknown user or a user without a profile.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile.Permissions").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Profile == nil {
		return nil, nil
	}
	return newProfile(user.Profile), nil
}

// ProfileID is the cache membership key: the user's profile, 0 for none or an unknown user.
func (r *DBProfileResolver) ProfileID(ctx context.Context, userID uint) (uint, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "profile_id").Where("id = ?", userID).Limit(1).Find(&user).Error; err != nil {
		return 0, err
	}
	if user.ProfileID == nil {
		return 0, nil
	}
	return *user.ProfileID, nil
}

// UserExists is the session verifier, so sessions of deleted operators stop working.
func (r *DBProfileResolver) UserExists(ctx context.Context, userID uint) bool {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

type dbProfile struct {
	id    uint
	name  string
	perms []gate.Permission
}

func newProfile(p *models.Profile) *dbProfile {
	perms := make([]gate.Permission, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = gate.Permission(perm.Code())
	}
	return &dbProfile{id: p.ID, name: p.Name, perms: perms}
}

func (p *dbProfile) ID() uint                      { return p.id }
func (p *dbProfile) Name() string                  { return p.name }
func (p *dbProfile) Permissions() []gate.Permission { return p.perms }

func (p *dbProfile) HasPermission(requested gate.Permission) bool {
	return gate.AnyMatches(p.perms, requested)
}
