package memory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/supermercado/products-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrSchemaViolation mimics a structural-validator rejection by the store.
var ErrSchemaViolation = errors.New("document failed schema validation")

// ProductRepository is an in-memory implementation of
// domain.ProductRepository. Used by the handler tests and as a storage-free
// local backend. Documents live in insertion order and codes are not
// deduplicated, matching the permissive insert behavior of the MongoDB
// backend; lookups and mutations by code act on the first match.
type ProductRepository struct {
	mu       sync.RWMutex
	products []*domain.Product
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		tracer: tracer,
		logger: logger,
	}
}

// EnsureSchema is a no-op; the schema rules are enforced on every insert
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "ProductRepository.EnsureSchema")
	defer span.End()
	span.SetStatus(codes.Ok, "Schema ready")
	return nil
}

// Create stores a new product, applying the same structural rules the
// MongoDB validator enforces server-side. An existing product with the same
// code is left untouched; the new document is appended alongside it.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int("product.code", product.Code),
		attribute.String("product.name", product.Name),
	)

	if strings.TrimSpace(product.Name) == "" ||
		strings.TrimSpace(product.Category) == "" ||
		product.Price < 0 {
		span.RecordError(ErrSchemaViolation)
		span.SetStatus(codes.Error, "Schema validation failed")
		return ErrSchemaViolation
	}

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products = append(r.products, product)

	r.logger.DebugContext(ctx, "Product created in repository",
		slog.Int("code", product.Code),
		slog.String("product_name", product.Name),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindAll retrieves all products in insertion order
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*domain.Product, len(r.products))
	copy(products, r.products)

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// FindByCode retrieves the first product with the given business code, in
// insertion order
func (r *ProductRepository) FindByCode(ctx context.Context, code int) (*domain.Product, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.FindByCode")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, product := range r.products {
		if product.Code == code {
			span.SetStatus(codes.Ok, "Product found")
			return product, nil
		}
	}

	span.SetStatus(codes.Error, "Product not found")
	return nil, domain.ErrProductNotFound
}

// FindByName retrieves the first product with the exact name, in insertion
// order. Names are not unique; only one match is returned.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.FindByName")
	defer span.End()

	span.SetAttributes(attribute.String("product.name", name))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, product := range r.products {
		if product.Name == name {
			span.SetStatus(codes.Ok, "Product found")
			return product, nil
		}
	}

	span.SetStatus(codes.Error, "Product not found")
	return nil, domain.ErrProductNotFound
}

// FindByCategory retrieves every product in the given category
func (r *ProductRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.FindByCategory")
	defer span.End()

	span.SetAttributes(attribute.String("product.category", category))

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := []*domain.Product{}
	for _, product := range r.products {
		if product.Category == category {
			products = append(products, product)
		}
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update applies the given fields to the first product matching the code
func (r *ProductRepository) Update(ctx context.Context, code int, updates map[string]any) (int64, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int("product.code", code),
		attribute.Int("update.fields", len(updates)),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, product := range r.products {
		if product.Code != code {
			continue
		}
		for field, value := range updates {
			switch field {
			case "name":
				product.Name = value.(string)
			case "price":
				product.Price = value.(float64)
			case "category":
				product.Category = value.(string)
			}
		}
		span.SetStatus(codes.Ok, "Update applied")
		return 1, nil
	}

	span.SetStatus(codes.Ok, "No product matched")
	return 0, nil
}

// Delete removes the first product matching the code
func (r *ProductRepository) Delete(ctx context.Context, code int) (int64, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, product := range r.products {
		if product.Code == code {
			r.products = append(r.products[:i], r.products[i+1:]...)
			span.SetStatus(codes.Ok, "Delete applied")
			return 1, nil
		}
	}

	span.SetStatus(codes.Ok, "No product matched")
	return 0, nil
}
