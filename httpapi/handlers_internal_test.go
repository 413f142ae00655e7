package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/libaf/json"
	"github.com/fernsearch/fern/oplog"
	"github.com/fernsearch/fern/replication"
)

func TestReplicateAndGetOps(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/tenants/shop", nil)
	doJSON(t, h, http.MethodPost, "/tenants/shop/documents", addDocumentsRequest{
		Documents: []map[string]interface{}{{"objectID": "1", "title": "Widget"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/internal/ops?tenant_id=shop&since_seq=0", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var opsResp replication.GetOpsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opsResp))
	assert.Equal(t, "shop", opsResp.TenantID)
	require.Len(t, opsResp.Ops, 1)
	assert.Equal(t, uint64(1), opsResp.CurrentSeq)
}

func TestReplicateRejectsOutOfOrderSeq(t *testing.T) {
	_, h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/tenants/shop", nil)

	rec := doJSON(t, h, http.MethodPost, "/internal/replicate", replication.ReplicateOpsRequest{
		TenantID: "shop",
		Ops: []oplog.Entry{
			{Seq: 5, Kind: "add_documents", Payload: []byte(`{"items":[]}`), Timestamp: 1},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalStatusWithNoReplicator(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/internal/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status replication.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.ReplicationEnabled)
}
