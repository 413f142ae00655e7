package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstSearchAlwaysCounted(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)
	assert.True(t, agg.ShouldCount("user1", "products", "laptop"))
}

func TestRapidTypingNotCounted(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCount("user1", "products", "l"))
	assert.False(t, agg.ShouldCount("user1", "products", "la"))
	assert.False(t, agg.ShouldCount("user1", "products", "lap"))
	assert.False(t, agg.ShouldCount("user1", "products", "lapt"))
	assert.False(t, agg.ShouldCount("user1", "products", "laptop"))
}

func TestDifferentUsersIndependent(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCount("user1", "products", "laptop"))
	assert.True(t, agg.ShouldCount("user2", "products", "laptop"))
}

func TestDifferentIndicesIndependent(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCount("user1", "products", "laptop"))
	assert.True(t, agg.ShouldCount("user1", "articles", "laptop"))
}

func TestWindowExpiryStartsNewSession(t *testing.T) {
	agg := NewQueryAggregator(0)

	assert.True(t, agg.ShouldCount("user1", "products", "a"))
	time.Sleep(10 * time.Millisecond)
	assert.True(t, agg.ShouldCount("user1", "products", "b"))
}

func TestEvictExpiredCleansOldEntries(t *testing.T) {
	agg := NewQueryAggregator(0)

	assert.True(t, agg.ShouldCount("user1", "products", "laptop"))
	time.Sleep(10 * time.Millisecond)
	assert.True(t, agg.ShouldCount("user1", "products", "phone"))

	assert.NotPanics(t, agg.EvictExpired)
}

func TestPaginationSameQuerySameFiltersNotCounted(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCountWithFilters("user1", "products", "laptop", "brand:Apple", true))
	assert.False(t, agg.ShouldCountWithFilters("user1", "products", "laptop", "brand:Apple", true))
}

func TestPaginationDifferentFiltersTreatedAsContinuation(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCountWithFilters("user1", "products", "laptop", "brand:Apple", true))
	assert.False(t, agg.ShouldCountWithFilters("user1", "products", "laptop", "brand:Samsung", true))
}

func TestPaginationNoFiltersDedup(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCountWithFilters("user1", "products", "laptop", "", false))
	assert.False(t, agg.ShouldCountWithFilters("user1", "products", "laptop", "", false))
}

func TestShouldCountDelegatesToWithFilters(t *testing.T) {
	agg := NewQueryAggregator(30 * time.Second)

	assert.True(t, agg.ShouldCount("user1", "products", "laptop"))
	assert.False(t, agg.ShouldCount("user1", "products", "laptop"))
	assert.False(t, agg.ShouldCount("user1", "products", "laptops"))
}
