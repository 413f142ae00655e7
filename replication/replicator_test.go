package replication

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernsearch/fern/libaf/json"
	"github.com/fernsearch/fern/oplog"
)

func TestReplicatorStatusReflectsPeerCount(t *testing.T) {
	r := NewReplicator("node-a", []PeerConfig{
		{NodeID: "peer-1", Addr: "http://peer1:7700"},
		{NodeID: "peer-2", Addr: "http://peer2:7700"},
	}, nil)
	status := r.Status()
	assert.Equal(t, "node-a", status.NodeID)
	assert.Equal(t, 2, status.PeerCount)
	assert.True(t, status.ReplicationEnabled)
}

func TestReplicatorBroadcastReachesEveryPeer(t *testing.T) {
	var mu sync.Mutex
	var received []uint64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ReplicateOpsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		received = append(received, req.Ops[0].Seq)
		mu.Unlock()
		body, _ := json.Marshal(ReplicateOpsResponse{TenantID: req.TenantID, AckedSeq: req.Ops[0].Seq})
		w.Write(body)
	}))
	defer srv.Close()

	r := NewReplicator("node-a", []PeerConfig{
		{NodeID: "peer-1", Addr: srv.URL},
		{NodeID: "peer-2", Addr: srv.URL},
	}, nil)

	r.Broadcast("shop", oplog.Entry{Seq: 9, Kind: "add_documents"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestReplicatorBroadcastDoesNotBlockOnDeadPeer(t *testing.T) {
	r := NewReplicator("node-a", []PeerConfig{
		{NodeID: "dead", Addr: "http://127.0.0.1:1"},
	}, nil)

	done := make(chan struct{})
	go func() {
		r.Broadcast("shop", oplog.Entry{Seq: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on an unreachable peer")
	}
}
