package replication

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/fernsearch/fern/libaf/json"
)

// peerTimeout is the fixed per-RPC timeout for every peer exchange.
const peerTimeout = 5 * time.Second

// PeerClient talks to one peer node: fan out committed ops, and fetch ops
// for catch-up when this node falls behind. Safe for concurrent use.
type PeerClient struct {
	peerID     string
	baseURL    string
	httpClient *http.Client

	lastSuccess atomic.Int64 // Unix seconds
}

// NewPeerClient builds a client for one peer, reachable at baseURL (e.g.
// "http://10.0.1.2:7700").
func NewPeerClient(peerID, baseURL string) *PeerClient {
	return &PeerClient{
		peerID:  peerID,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: peerTimeout,
		},
	}
}

// PeerID returns this client's peer identity.
func (c *PeerClient) PeerID() string { return c.peerID }

// LastSuccessTimestamp returns the Unix timestamp of the last exchange that
// completed successfully, or 0 if none has yet.
func (c *PeerClient) LastSuccessTimestamp() int64 { return c.lastSuccess.Load() }

// ReplicateOps POSTs a batch of ops to the peer's /internal/replicate
// endpoint. Fire-and-forget: on transport failure or a non-2xx response it
// returns an error and the caller does not retry; the gap stays open until
// a GetOps catch-up (Replicator.CatchUp) is run.
func (c *PeerClient) ReplicateOps(ctx context.Context, req ReplicateOpsRequest) (*ReplicateOpsResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal replicate request for %s: %w", c.peerID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/replicate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build replicate request for %s: %w", c.peerID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", c.peerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("peer %s returned error: %d: %s", c.peerID, resp.StatusCode, string(respBody))
	}

	var out ReplicateOpsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse response from %s: %w", c.peerID, err)
	}

	c.lastSuccess.Store(time.Now().Unix())
	return &out, nil
}

// GetOps fetches ops newer than sinceSeq from the peer's /internal/ops
// endpoint, for catch-up after a rejected (out-of-order) ReplicateOps call.
func (c *PeerClient) GetOps(ctx context.Context, tenantID string, sinceSeq uint64) (*GetOpsResponse, error) {
	u := fmt.Sprintf("%s/internal/ops?tenant_id=%s&since_seq=%d", c.baseURL, url.QueryEscape(tenantID), sinceSeq)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build get_ops request for %s: %w", c.peerID, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ops from %s: %w", c.peerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("peer %s returned error: %d: %s", c.peerID, resp.StatusCode, string(body))
	}

	var out GetOpsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse ops from %s: %w", c.peerID, err)
	}

	c.lastSuccess.Store(time.Now().Unix())
	return &out, nil
}
