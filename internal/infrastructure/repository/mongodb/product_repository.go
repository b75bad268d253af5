package mongodb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/supermercado/products-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const collectionName = "products"

// productSchema mirrors the application-level field rules at the storage
// layer: the store rejects malformed documents even if the validator in
// front of it is bypassed.
var productSchema = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"code", "name", "price", "category"},
		"properties": bson.M{
			"code": bson.M{
				"bsonType":    bson.A{"int", "long"},
				"description": "must be an integer and is required",
			},
			"name": bson.M{
				"bsonType":    "string",
				"description": "must be a string and is required",
			},
			"price": bson.M{
				"bsonType":    bson.A{"double", "int"},
				"minimum":     0,
				"description": "must be a non-negative number",
			},
			"category": bson.M{
				"bsonType":    "string",
				"description": "must be a string and is required",
			},
		},
	},
}

// ProductRepository is a MongoDB implementation of domain.ProductRepository
type ProductRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewProductRepository creates a new MongoDB product repository
func NewProductRepository(db *mongo.Database, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:         db,
		collection: db.Collection(collectionName),
		tracer:     tracer,
		logger:     logger,
	}
}

// EnsureSchema creates the products collection with its structural
// validator, or reconciles the validator onto an existing collection via
// collMod. Safe to call on every startup.
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.EnsureSchema")
	defer span.End()

	names, err := r.db.ListCollectionNames(ctx, bson.M{"name": collectionName})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list collections")
		return err
	}

	if len(names) == 0 {
		opts := options.CreateCollection().
			SetValidator(productSchema).
			SetValidationLevel("strict").
			SetValidationAction("error")
		if err := r.db.CreateCollection(ctx, collectionName, opts); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to create collection")
			return err
		}
		r.logger.InfoContext(ctx, "Collection created with schema validator",
			slog.String("collection", collectionName),
		)
		span.SetStatus(codes.Ok, "Collection created")
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: collectionName},
		{Key: "validator", Value: productSchema},
		{Key: "validationLevel", Value: "strict"},
		{Key: "validationAction", Value: "error"},
	}
	if err := r.db.RunCommand(ctx, cmd).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to apply schema validator")
		return err
	}
	r.logger.InfoContext(ctx, "Schema validator applied to existing collection",
		slog.String("collection", collectionName),
	)
	span.SetStatus(codes.Ok, "Schema validator applied")
	return nil
}

// Create stores a new product and sets the assigned identifier back on it
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int("product.code", product.Code),
		attribute.String("product.name", product.Name),
	)

	result, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert rejected")
		r.logger.ErrorContext(ctx, "Insert rejected by store",
			slog.Int("code", product.Code),
			slog.String("error", err.Error()),
		)
		return err
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindAll retrieves every stored product as a materialized list
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	return r.find(ctx, span, bson.M{})
}

// FindByCode retrieves at most one product matching the business code
func (r *ProductRepository) FindByCode(ctx context.Context, code int) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByCode")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))
	return r.findOne(ctx, span, bson.M{"code": code})
}

// FindByName retrieves at most one product with the exact name. When
// several products share a name the store picks one in its own order.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByName")
	defer span.End()

	span.SetAttributes(attribute.String("product.name", name))
	return r.findOne(ctx, span, bson.M{"name": name})
}

// FindByCategory retrieves every product in the given category
func (r *ProductRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByCategory")
	defer span.End()

	span.SetAttributes(attribute.String("product.category", category))
	return r.find(ctx, span, bson.M{"category": category})
}

// Update applies the given fields to the product matching the code and
// reports the matched count
func (r *ProductRepository) Update(ctx context.Context, code int, updates map[string]any) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int("product.code", code),
		attribute.Int("update.fields", len(updates)),
	)

	result, err := r.collection.UpdateOne(ctx, bson.M{"code": code}, bson.M{"$set": bson.M(updates)})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update rejected")
		r.logger.ErrorContext(ctx, "Update rejected by store",
			slog.Int("code", code),
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	span.SetStatus(codes.Ok, "Update applied")
	return result.MatchedCount, nil
}

// Delete removes the product matching the code and reports the deleted count
func (r *ProductRepository) Delete(ctx context.Context, code int) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int("product.code", code))

	result, err := r.collection.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return 0, err
	}

	span.SetStatus(codes.Ok, "Delete applied")
	return result.DeletedCount, nil
}

func (r *ProductRepository) findOne(ctx context.Context, span trace.Span, filter bson.M) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, filter).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.ErrProductNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Product found")
	return &product, nil
}

func (r *ProductRepository) find(ctx context.Context, span trace.Span, filter bson.M) ([]*domain.Product, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, err
	}

	products := []*domain.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cursor drain failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}
