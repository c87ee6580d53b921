package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cuemby/walletstore/pkg/log"
	"github.com/cuemby/walletstore/pkg/metrics"
	"github.com/spf13/cobra"
)

// serveCmd opens one wallet and holds it for the process lifetime,
// exposing /metrics, /health, /ready and /live the way cmd/warren's own
// server mode does (http.Handle against the pkg/metrics handlers), so
// the remote backend's operators have something to point a scraper and
// a liveness probe at even though walletctl itself is otherwise a
// one-shot CLI.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open a wallet and serve /metrics, /health, /ready and /live until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		metrics.SetVersion(Version)
		metrics.RegisterComponent("storage", false, "opening")
		metrics.RegisterComponent("api", false, "starting")

		store, err := openStore(context.Background(), cmd)
		if err != nil {
			metrics.RegisterComponent("storage", false, err.Error())
			return fmt.Errorf("open wallet: %w", err)
		}
		defer store.Close()
		metrics.RegisterComponent("storage", true, "open")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		backend, walletID, _, _, _ := rootFlags(cmd)
		logger := log.WithWalletID(walletID)
		logger.Info().Str("backend", backend).Str("addr", addr).Msg("serving")

		metrics.RegisterComponent("api", true, "ready")
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":9090", "Address to serve /metrics, /health, /ready and /live on")
}
