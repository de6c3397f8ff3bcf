package db

import (
	"errors"
	"strings"

	"github.com/diewo77/go-stock/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed initializes profiles and permissions. Should be called after Migrate.
func Seed(db *gorm.DB) error {
	return SeedProfiles(db)
}

// SeedPermissions creates every resource:action pair the router checks.
func SeedPermissions(db *gorm.DB) error {
	permissions := []struct {
		ResourceType string
		Action       string
		Description  string
	}{
		{"*", "*", "Full system access"},
		{"client", "*", "All client actions"},
		{"client", "list", "List clients"},
		{"client", "view", "View client details"},
		{"client", "create", "Create clients"},
		{"client", "update", "Edit clients"},
		{"client", "delete", "Delete clients"},
		{"product", "*", "All product actions"},
		{"product", "list", "List products"},
		{"product", "view", "View product details"},
		{"product", "create", "Create products"},
		{"product", "update", "Edit products and stock"},
		{"product", "delete", "Delete products"},
		{"order", "*", "All order actions"},
		{"order", "list", "List orders"},
		{"order", "view", "View order details"},
		{"order", "create", "Create orders"},
		{"order", "update", "Edit unvalidated orders"},
		{"order", "delete", "Delete orders"},
		{"order", "validate", "Validate orders and take stock"},
		{"invoice", "*", "All invoice actions"},
		{"invoice", "view", "Download invoices"},
		{"invoice", "create", "Generate invoices"},
		{"invoice", "update", "Mark invoices paid"},
		{"delivery_note", "*", "All delivery note actions"},
		{"delivery_note", "view", "Download delivery notes"},
		{"delivery_note", "create", "Generate delivery notes"},
	}

	for _, p := range permissions {
		perm := models.Permission{
			ResourceType: p.ResourceType,
			Action:       p.Action,
			Description:  p.Description,
		}
		result := db.Where("resource_type = ? AND action = ?", p.ResourceType, p.Action).
			FirstOrCreate(&perm)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// SeedProfiles creates the default system profiles with their permissions.
func SeedProfiles(db *gorm.DB) error {
	if err := SeedPermissions(db); err != nil {
		return err
	}

	profiles := []struct {
		Name        string
		Description string
		Permissions []string
	}{
		{
			Name:        "admin",
			Description: "Full system administrator",
			Permissions: []string{"*:*"},
		},
		{
			Name:        "warehouse",
			Description: "Manages stock and validates orders",
			Permissions: []string{
				"product:*",
				"client:list", "client:view",
				"order:list", "order:view", "order:validate",
				"delivery_note:*",
			},
		},
		{
			Name:        "sales",
			Description: "Manages clients and orders, issues invoices",
			Permissions: []string{
				"client:*",
				"product:list", "product:view",
				"order:list", "order:view", "order:create", "order:update", "order:delete",
				"invoice:*",
				"delivery_note:view",
			},
		},
	}

	for _, p := range profiles {
		profile := models.Profile{Name: p.Name}
		if err := db.Where("name = ?", p.Name).
			Attrs(models.Profile{Description: p.Description, IsSystem: true}).
			FirstOrCreate(&profile).Error; err != nil {
			return err
		}

		var perms []models.Permission
		for _, code := range p.Permissions {
			resource, action, _ := strings.Cut(code, ":")
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error; err == nil {
				perms = append(perms, perm)
			}
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates the first operator on the admin profile when no user has that email.
// An empty password disables the bootstrap.
func SeedAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var admin models.Profile
	if err := db.Where("name = ?", "admin").First(&admin).Error; err != nil {
		return err
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Email:     email,
		Name:      "Administrator",
		Password:  string(hash),
		ProfileID: &admin.ID,
	}).Error
}
