package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fernsearch/fern/analytics"
	"github.com/fernsearch/fern/facet"
	"github.com/fernsearch/fern/healthserver"
	"github.com/fernsearch/fern/httpapi"
	"github.com/fernsearch/fern/logging"
	"github.com/fernsearch/fern/manager"
	"github.com/fernsearch/fern/memory"
	"github.com/fernsearch/fern/replication"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func flagOrEnv(cmd *cobra.Command, flag, env, fallback string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return envOr(env, fallback)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.New(logging.FromEnv())
	defer func() { _ = log.Sync() }()

	dataDir := flagOrEnv(cmd, "data-dir", "DATA_DIR", "./data")
	bindAddr := flagOrEnv(cmd, "bind-addr", "BIND_ADDR", "127.0.0.1:7700")
	healthAddr := flagOrEnv(cmd, "health-addr", "FERN_HEALTH_ADDR", "127.0.0.1:7701")

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	budget := memory.NewBudget(memory.BudgetConfigFromEnv())
	observer := memory.NewObserver(memory.SystemLimitBytesFromEnv(os.Getenv))
	observer.Start(2 * time.Second)

	mgr := manager.New(dataDir, budget, observer, facet.CapacityFromEnv(), log)
	defer mgr.Close()

	nodeCfg := replication.LoadOrDefault(dataDir, log)
	if flagAddr, _ := cmd.Flags().GetString("bind-addr"); flagAddr != "" || nodeCfg.BindAddr == "" {
		nodeCfg.BindAddr = bindAddr
	} else {
		bindAddr = nodeCfg.BindAddr
	}

	var repl *replication.Replicator
	if len(nodeCfg.Peers) > 0 {
		repl = replication.NewReplicator(nodeCfg.NodeID, nodeCfg.Peers, log)
		mgr.SetReplicationHook(repl)
		log.Info("replication enabled", zap.Int("peers", repl.PeerCount()))
	} else {
		log.Info("running in standalone mode, no peers configured")
	}

	agg := analytics.NewQueryAggregator(analytics.DefaultWindow)

	api := httpapi.NewServer(mgr, repl, agg, log)
	apiSrv := &http.Server{
		Addr:              bindAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := healthserver.New(mgr, prometheus.NewRegistry(), log)
	health.Start(healthAddr)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting search API", zap.String("addr", bindAddr), zap.String("node_id", nodeCfg.NodeID))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(ctx); err != nil {
		log.Error("search API shutdown error", zap.Error(err))
	}
	if err := health.Shutdown(ctx); err != nil {
		log.Error("health server shutdown error", zap.Error(err))
	}
	return nil
}
