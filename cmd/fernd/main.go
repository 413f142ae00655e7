// Command fernd runs the Fern search engine as a standalone HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fernd",
	Short:   "fernd - multi-tenant full-text search engine",
	Long:    `fernd ingests, indexes, and serves typo-tolerant, faceted full-text search over HTTP, with optional peer-to-peer replication.`,
	Version: version,
	RunE:    runServe,
}

func init() {
	rootCmd.Flags().String("data-dir", "", "directory for tenant indexes and oplogs (env DATA_DIR, default ./data)")
	rootCmd.Flags().String("bind-addr", "", "address the search API listens on (env BIND_ADDR, default 127.0.0.1:7700)")
	rootCmd.Flags().String("health-addr", "", "address the health/metrics server listens on (env FERN_HEALTH_ADDR, default 127.0.0.1:7701)")
}
