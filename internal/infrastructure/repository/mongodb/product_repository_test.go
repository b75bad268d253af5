package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestProductSchemaShape(t *testing.T) {
	schema, ok := productSchema["$jsonSchema"].(bson.M)
	require.True(t, ok)

	assert.ElementsMatch(t,
		bson.A{"code", "name", "price", "category"},
		schema["required"])

	props, ok := schema["properties"].(bson.M)
	require.True(t, ok)

	// The driver marshals a Go int as int32 or int64 depending on its
	// magnitude; the validator must admit both
	code := props["code"].(bson.M)
	assert.Equal(t, bson.A{"int", "long"}, code["bsonType"])

	price := props["price"].(bson.M)
	assert.Equal(t, bson.A{"double", "int"}, price["bsonType"])
	assert.Equal(t, 0, price["minimum"])
}
