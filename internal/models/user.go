package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a back-office operator allowed to sign in.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // bcrypt hash
	// A nil ProfileID means the operator can sign in but is granted nothing.
	ProfileID   *uint      `gorm:"index" json:"profile_id,omitempty"`
	Profile     *Profile   `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}
