package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/conclave/internal/gateway"
	"github.com/dusk-indust/conclave/internal/history"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and WebSocket progress stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.pipeline.Close()

			store, err := history.Open(a.cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			addr := a.cfg.Listen
			if listen != "" {
				addr = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := gateway.New(a.pipeline, store, a.log)
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "bind address (overrides config)")
	return cmd
}
