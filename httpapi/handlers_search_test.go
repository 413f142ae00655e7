package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/analytics"
	"github.com/fernsearch/fern/manager"
	"github.com/fernsearch/fern/memory"
)

func TestSearchWithAnalyticsHintDedupsRapidTyping(t *testing.T) {
	budget := memory.NewBudget(memory.DefaultBudgetConfig())
	mgr := manager.New(t.TempDir(), budget, nil, 64, nil)
	t.Cleanup(mgr.Close)
	agg := analytics.NewQueryAggregator(30 * time.Second)
	s := NewServer(mgr, nil, agg, nil)
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/tenants/shop", nil)

	rec := doJSON(t, h, http.MethodPost, "/tenants/shop/search", searchRequestDTO{Query: "l", UserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The handler already folded this exact query into u1's session, so a
	// second identical query within the window is a dedup'd continuation.
	assert.False(t, agg.ShouldCount("u1", "shop", "l"))
}
