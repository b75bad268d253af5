package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoUpdateFields is returned when an update payload carries none of the
// recognized fields.
var ErrNoUpdateFields = errors.New("no fields to update")

// ValidationError identifies the first field of a payload that failed its
// predicate.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid or missing field %q", e.Field)
}

// Product represents the product entity, keyed by its business code rather
// than the storage-assigned identifier.
type Product struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code     int                `json:"code" bson:"code"`
	Name     string             `json:"name" bson:"name"`
	Price    float64            `json:"price" bson:"price"`
	Category string             `json:"category" bson:"category"`
}

// fieldRule pairs a payload field with its shape predicate. The slice order
// is the validation order; deterministic error reporting depends on it.
type fieldRule struct {
	name  string
	valid func(v any) bool
}

var fieldRules = []fieldRule{
	{"code", isInteger},
	{"name", isNonEmptyString},
	{"price", isNonNegativeNumber},
	{"category", isNonEmptyString},
}

func isInteger(v any) bool {
	n, ok := v.(float64)
	return ok && n == math.Trunc(n)
}

func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func isNonNegativeNumber(v any) bool {
	n, ok := v.(float64)
	return ok && n >= 0
}

// ValidateForCreate checks a decoded JSON payload against the full field
// set, in declared order, and reports the first field that is missing or
// malformed. Returns nil when the payload is well-formed.
func ValidateForCreate(payload map[string]any) *ValidationError {
	for _, rule := range fieldRules {
		v, ok := payload[rule.name]
		if !ok || !rule.valid(v) {
			return &ValidationError{Field: rule.name}
		}
	}
	return nil
}

// ExtractUpdates walks the recognized fields excluding code, validates the
// ones present and returns them normalized. Absent fields are omitted; no
// defaults are injected. An empty result is not an error here, the caller
// decides what a zero-field update means.
func ExtractUpdates(payload map[string]any) (map[string]any, error) {
	updates := make(map[string]any)
	for _, rule := range fieldRules {
		if rule.name == "code" {
			continue
		}
		v, ok := payload[rule.name]
		if !ok {
			continue
		}
		if !rule.valid(v) {
			return nil, &ValidationError{Field: rule.name}
		}
		updates[rule.name] = normalizeField(rule.name, v)
	}
	return updates, nil
}

// NewProduct builds a Product from a payload that already passed
// ValidateForCreate. All type coercion happens here and nowhere else:
// integer code, trimmed name and category, numeric price.
func NewProduct(payload map[string]any) *Product {
	return &Product{
		Code:     int(payload["code"].(float64)),
		Name:     normalizeField("name", payload["name"]).(string),
		Price:    payload["price"].(float64),
		Category: normalizeField("category", payload["category"]).(string),
	}
}

func normalizeField(name string, v any) any {
	switch name {
	case "name", "category":
		return strings.TrimSpace(v.(string))
	default:
		return v
	}
}
