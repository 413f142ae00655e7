package healthserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/manager"
	"github.com/fernsearch/fern/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	budget := memory.NewBudget(memory.DefaultBudgetConfig())
	mgr := manager.New(t.TempDir(), budget, nil, 64, nil)
	t.Cleanup(mgr.Close)
	return New(mgr, prometheus.NewRegistry(), nil)
}

func TestHealthzAlwaysOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzOKWithoutObserver(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsReportsActiveWriters(t *testing.T) {
	s := newTestServer(t)
	guard, err := s.mgr.Budget().AcquireWriter()
	require.NoError(t, err)
	defer guard.Release()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fern_active_writers 1")
}
