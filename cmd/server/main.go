package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/diewo77/go-stock/internal/config"
	"github.com/diewo77/go-stock/internal/db"
	"github.com/diewo77/go-stock/internal/logger"
	"github.com/diewo77/go-stock/internal/services"
	"github.com/diewo77/go-stock/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
	validateFlag    = flag.String("validate", "", "Validate the comma-separated order ids and exit")
	langFlag        = flag.String("lang", "fr", "Language of the -validate summary (fr or en)")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.Init(cfg.Log, cfg.App.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		return err
	}

	switch {
	case *migrateOnlyFlag:
		if err := migrate(conn, cfg, log); err != nil {
			return err
		}
		log.Info("migrations completed")
		return nil
	case *seedOnlyFlag:
		if err := seed(conn, cfg); err != nil {
			return err
		}
		log.Info("seeding completed")
		return nil
	case *validateFlag != "":
		return validateOffline(conn, log, *validateFlag, *langFlag)
	}

	if cfg.App.Migrations || cfg.App.Dev {
		if err := migrate(conn, cfg, log); err != nil {
			return err
		}
	}
	if err := seed(conn, cfg); err != nil {
		return err
	}
	return serve(conn, cfg, log)
}

// migrate applies the embedded SQL migrations when MIGRATIONS is set on
// postgres, and gorm AutoMigrate otherwise.
func migrate(conn *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if cfg.App.Migrations && cfg.Database.Driver != "sqlite" {
		log.Info("applying SQL migrations")
		if err := db.MigrateSQL(cfg.Database.URL()); err != nil {
			return err
		}
		return db.CheckTables(conn)
	}
	log.Info("running auto-migrate")
	return db.Migrate(conn)
}

func seed(conn *gorm.DB, cfg *config.Config) error {
	if err := db.Seed(conn); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := db.SeedAdmin(conn, cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// validateOffline runs one validation batch and prints the summary. It fails when any order failed.
func validateOffline(conn *gorm.DB, log *zap.Logger, raw, lang string) error {
	ids, err := parseIDs(raw)
	if err != nil {
		return err
	}
	v := services.NewOrderValidator(store.New(conn), log)
	sum, err := v.ValidateBatch(context.Background(), ids)
	fmt.Println(sum.Message(lang))
	if err != nil {
		return err
	}
	if !sum.OK() {
		return fmt.Errorf("%d order(s) not validated", len(sum.Failures))
	}
	return nil
}

func parseIDs(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid order id %q", part)
		}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		return nil, errors.New("no order id given")
	}
	return ids, nil
}

func serve(conn *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(conn, cfg, log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
