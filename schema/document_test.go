package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenStringLeaf(t *testing.T) {
	f := Flatten(map[string]interface{}{"title": "blue widget"})
	assert.Contains(t, f.SearchTerms, "title\x00blue widget")
}

func TestFlattenNestedObject(t *testing.T) {
	f := Flatten(map[string]interface{}{
		"author": map[string]interface{}{"name": "Ada"},
	})
	assert.Contains(t, f.SearchTerms, "author.name\x00Ada")
}

func TestFlattenNumericLeaf(t *testing.T) {
	f := Flatten(map[string]interface{}{"price": 19.99})
	assert.InDelta(t, 19.99, f.Numeric["price"], 1e-9)
}

func TestFlattenArrayExpandedPositionally(t *testing.T) {
	f := Flatten(map[string]interface{}{
		"ratings": []interface{}{4.0, 5.0},
	})
	assert.InDelta(t, 4.0, f.Numeric["ratings.0"], 1e-9)
	assert.InDelta(t, 5.0, f.Numeric["ratings.1"], 1e-9)
}

func TestFlattenArrayOfStrings(t *testing.T) {
	f := Flatten(map[string]interface{}{
		"tags": []interface{}{"red", "blue"},
	})
	assert.Contains(t, f.SearchTerms, "tags.0\x00red")
	assert.Contains(t, f.SearchTerms, "tags.1\x00blue")
}

func TestFlattenBoolLeaf(t *testing.T) {
	f := Flatten(map[string]interface{}{"inStock": true})
	assert.InDelta(t, 1.0, f.Numeric["inStock"], 1e-9)
}

func TestResolveIDPrefersObjectID(t *testing.T) {
	id, supplied := ResolveID(map[string]interface{}{"objectID": "sku-1", "_id": "other"})
	assert.Equal(t, "sku-1", id)
	assert.True(t, supplied)
}

func TestResolveIDFallsBackToUnderscoreID(t *testing.T) {
	id, supplied := ResolveID(map[string]interface{}{"_id": "sku-2"})
	assert.Equal(t, "sku-2", id)
	assert.True(t, supplied)
}

func TestResolveIDGeneratesWhenAbsent(t *testing.T) {
	id, supplied := ResolveID(map[string]interface{}{"title": "x"})
	assert.NotEmpty(t, id)
	assert.False(t, supplied)
}

func TestValidateFieldReference(t *testing.T) {
	known := map[string]struct{}{"price": {}}
	require.NoError(t, ValidateFieldReference("price", known))
	require.Error(t, ValidateFieldReference("missing", known))
}
