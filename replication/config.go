package replication

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fernsearch/fern/libaf/json"
)

// nodeConfigFileName is where cluster membership lives under the data root.
const nodeConfigFileName = "node.json"

// PeerConfig names one peer reachable from this node.
type PeerConfig struct {
	NodeID string `json:"node_id"`
	Addr   string `json:"addr"`
}

// NodeConfig is this node's identity and peer list.
type NodeConfig struct {
	NodeID   string       `json:"node_id"`
	BindAddr string       `json:"bind_addr"`
	Peers    []PeerConfig `json:"peers"`
}

// LoadOrDefault reads {dataDir}/node.json if present; otherwise it returns
// a standalone-mode default with no peers: the node ID from FERN_NODE_ID,
// else os.Hostname (else "unknown"), and the bind address from
// FERN_BIND_ADDR, else BIND_ADDR, else 127.0.0.1:7700.
func LoadOrDefault(dataDir string, log *zap.Logger) NodeConfig {
	if log == nil {
		log = zap.NewNop()
	}
	path := filepath.Join(dataDir, nodeConfigFileName)

	if content, err := os.ReadFile(path); err == nil {
		var cfg NodeConfig
		if err := json.Unmarshal(content, &cfg); err == nil {
			log.Info("loaded node config", zap.String("node_id", cfg.NodeID), zap.Int("peers", len(cfg.Peers)))
			return cfg
		} else {
			log.Error("failed to parse node.json, using defaults", zap.Error(err))
		}
	} else if !os.IsNotExist(err) {
		log.Error("failed to read node.json, using defaults", zap.Error(err))
	}

	nodeID := os.Getenv("FERN_NODE_ID")
	if nodeID == "" {
		if h, err := os.Hostname(); err == nil {
			nodeID = h
		} else {
			nodeID = "unknown"
		}
	}

	bindAddr := os.Getenv("FERN_BIND_ADDR")
	if bindAddr == "" {
		bindAddr = os.Getenv("BIND_ADDR")
	}
	if bindAddr == "" {
		bindAddr = "127.0.0.1:7700"
	}

	log.Info("no node.json found, running in standalone mode", zap.String("node_id", nodeID))
	return NodeConfig{NodeID: nodeID, BindAddr: bindAddr}
}
