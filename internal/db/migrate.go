package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-stock/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// requiredTables must exist after any migration path.
var requiredTables = []string{"users", "profiles", "permissions", "clients", "products", "orders", "order_items", "invoices", "delivery_notes"}

// Migrate runs AutoMigrate for all models.
func Migrate(db *gorm.DB) error {
	modelsToMigrate := []any{
		// Operators & authorization
		&models.Permission{},
		&models.Profile{},
		&models.User{},
		// Stock
		&models.Client{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Invoice{},
		&models.DeliveryNote{},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return CheckTables(db)
}

// MigrateSQL applies the embedded postgres migrations with golang-migrate.
// databaseURL must be in postgres:// form.
func MigrateSQL(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CheckTables verifies the core tables exist.
func CheckTables(db *gorm.DB) error {
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
