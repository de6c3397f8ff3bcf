// Package store is the typed data-access layer over gorm.
//
// Every method takes a context and returns one of the sentinel errors below
// (wrapped) for the outcomes callers are expected to branch on.
package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record looked up by id, reference or order does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrReferenced is returned when deleting a record that other records still point to.
	ErrReferenced = errors.New("record is still referenced")
	// ErrDuplicate is returned when a unique reference or number is already taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrInsufficientStock is returned by guarded stock updates that would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for negative stock levels.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Store wraps a gorm handle. The zero value is not usable; use New.
type Store struct {
	db *gorm.DB
}

// New returns a store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and tests.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn with a store bound to one transaction. fn's error rolls
// everything back and is returned unchanged.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// ListParams carries free-text search and pagination for list operations.
type ListParams struct {
	Query string
	Page  int
	Limit int
}

// Normalize clamps page and limit to usable values.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	p.Query = strings.TrimSpace(p.Query)
	return p
}

// Offset returns the row offset of the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// translate maps gorm errors to the store's sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrReferenced
	}
	return err
}

func likePattern(q string) string {
	return "%" + strings.ToLower(q) + "%"
}
