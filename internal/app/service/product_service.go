package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/supermercado/products-api/internal/app/dto"
	"github.com/supermercado/products-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

func (s *ProductService) countOperation(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

// CreateProduct validates the raw payload, normalizes it and stores a new
// product. The first invalid or missing field aborts the operation before
// the repository is touched.
func (s *ProductService) CreateProduct(ctx context.Context, payload map[string]any) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	if verr := domain.ValidateForCreate(payload); verr != nil {
		span.RecordError(verr)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Product payload rejected",
			slog.String("field", verr.Field),
		)
		s.countOperation(ctx, "create", "validation_failure")
		return nil, verr
	}

	product := domain.NewProduct(payload)

	span.SetAttributes(
		attribute.Int("product.code", product.Code),
		attribute.String("product.name", product.Name),
		attribute.Float64("product.price", product.Price),
		attribute.String("product.category", product.Category),
	)

	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		s.logger.ErrorContext(ctx, "Failed to store product",
			slog.Int("code", product.Code),
			slog.String("error", err.Error()),
		)
		s.countOperation(ctx, "create", "failure")
		return nil, err
	}

	s.productCreatedCounter.Add(ctx, 1)
	s.countOperation(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created",
		slog.Int("code", product.Code),
		slog.String("product_id", product.ID.Hex()),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(product), nil
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to retrieve products")
		s.logger.ErrorContext(ctx, "Failed to list products",
			slog.String("error", err.Error()),
		)
		s.countOperation(ctx, "list", "failure")
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.countOperation(ctx, "list", "success")

	span.SetStatus(codes.Ok, "Products listed successfully")
	return dto.ToProductResponseList(products), nil
}

// GetProductByCode retrieves a single product by its business code
func (s *ProductService) GetProductByCode(ctx context.Context, code int) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByCode")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))

	product, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, s.lookupFailed(ctx, span, "read", err, slog.Int("code", code))
	}

	s.countOperation(ctx, "read", "success")
	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// GetProductByName retrieves a single product by exact name. Names are not
// unique; when several products share one, whichever the store returns
// first wins.
func (s *ProductService) GetProductByName(ctx context.Context, name string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByName")
	defer span.End()

	span.SetAttributes(attribute.String("product.name", name))

	product, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, s.lookupFailed(ctx, span, "read", err, slog.String("name", name))
	}

	s.countOperation(ctx, "read", "success")
	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// GetProductsByCategory retrieves every product in a category. An empty
// result surfaces as not-found.
func (s *ProductService) GetProductsByCategory(ctx context.Context, category string) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductsByCategory")
	defer span.End()

	span.SetAttributes(attribute.String("product.category", category))

	products, err := s.repo.FindByCategory(ctx, category)
	if err != nil {
		return nil, s.lookupFailed(ctx, span, "read", err, slog.String("category", category))
	}

	if len(products) == 0 {
		span.SetStatus(codes.Error, "No products in category")
		s.countOperation(ctx, "read", "not_found")
		return nil, domain.ErrProductNotFound
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.countOperation(ctx, "read", "success")
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return dto.ToProductResponseList(products), nil
}

// UpdateProductByCode applies a partial update to the product carrying the
// given code and returns the document as stored afterwards. The code itself
// is immutable and ignored when present in the payload.
func (s *ProductService) UpdateProductByCode(ctx context.Context, code int, payload map[string]any) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProductByCode")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))

	updates, err := domain.ExtractUpdates(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Update payload rejected",
			slog.Int("code", code),
			slog.String("error", err.Error()),
		)
		s.countOperation(ctx, "update", "validation_failure")
		return nil, err
	}
	if len(updates) == 0 {
		span.SetStatus(codes.Error, "No fields to update")
		s.countOperation(ctx, "update", "validation_failure")
		return nil, domain.ErrNoUpdateFields
	}

	matched, err := s.repo.Update(ctx, code, updates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update product")
		s.logger.ErrorContext(ctx, "Failed to update product",
			slog.Int("code", code),
			slog.String("error", err.Error()),
		)
		s.countOperation(ctx, "update", "failure")
		return nil, err
	}
	if matched == 0 {
		span.SetStatus(codes.Error, "Product not found")
		s.countOperation(ctx, "update", "not_found")
		return nil, domain.ErrProductNotFound
	}

	product, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to reload product")
		s.countOperation(ctx, "update", "failure")
		return nil, err
	}

	s.countOperation(ctx, "update", "success")
	s.logger.InfoContext(ctx, "Product updated",
		slog.Int("code", code),
		slog.Int("fields", len(updates)),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return dto.ToProductResponse(product), nil
}

// DeleteProductByCode removes the product carrying the given code
func (s *ProductService) DeleteProductByCode(ctx context.Context, code int) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProductByCode")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))

	deleted, err := s.repo.Delete(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete product")
		s.logger.ErrorContext(ctx, "Failed to delete product",
			slog.Int("code", code),
			slog.String("error", err.Error()),
		)
		s.countOperation(ctx, "delete", "failure")
		return err
	}
	if deleted == 0 {
		span.SetStatus(codes.Error, "Product not found")
		s.countOperation(ctx, "delete", "not_found")
		return domain.ErrProductNotFound
	}

	s.countOperation(ctx, "delete", "success")
	s.logger.InfoContext(ctx, "Product deleted",
		slog.Int("code", code),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return nil
}

func (s *ProductService) lookupFailed(ctx context.Context, span trace.Span, operation string, err error, key slog.Attr) error {
	if errors.Is(err, domain.ErrProductNotFound) {
		span.SetStatus(codes.Error, "Product not found")
		s.logger.WarnContext(ctx, "Product not found", key)
		s.countOperation(ctx, operation, "not_found")
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "Lookup failed")
	s.logger.ErrorContext(ctx, "Product lookup failed",
		key,
		slog.String("error", err.Error()),
	)
	s.countOperation(ctx, operation, "failure")
	return err
}
