package domain

import (
	"context"
	"errors"
)

// ErrProductNotFound is returned by lookups with a well-formed key and no
// matching document.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the contract for product storage. Lookups and
// mutations are keyed by the business code; every method may fail with a
// storage error, which propagates to the caller unretried.
type ProductRepository interface {
	// EnsureSchema installs the collection-level structural validator.
	// Idempotent; safe to call on every startup.
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, product *Product) error
	FindAll(ctx context.Context) ([]*Product, error)
	FindByCode(ctx context.Context, code int) (*Product, error)
	FindByName(ctx context.Context, name string) (*Product, error)
	FindByCategory(ctx context.Context, category string) ([]*Product, error)
	// Update applies only the fields present in updates and reports how many
	// documents matched the code (0 or 1). The code itself is never mutated.
	Update(ctx context.Context, code int, updates map[string]any) (int64, error)
	Delete(ctx context.Context, code int) (int64, error)
}
