package models

import (
	"strings"
	"time"
)

// Client represents a customer who places orders.
// A client cannot be deleted while orders reference it.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"size:100;not null" json:"name"`
	Address string `gorm:"type:text" json:"address,omitempty"`
	Phone   string `gorm:"size:20" json:"phone,omitempty"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
}

// Contact returns the non-empty contact fields joined for display.
func (c *Client) Contact() string {
	var parts []string
	for _, s := range []string{c.Email, c.Phone} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

func (c Client) String() string { return c.Name }
