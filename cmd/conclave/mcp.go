package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/conclave/internal/history"
	"github.com/dusk-indust/conclave/internal/mcptools"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP tool server on stdio",
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

			svc := mcptools.NewConclaveService(a.pipeline, a.cfg.EnabledAgents(), a.cfg.Aggregator(), store)
			server := mcptools.NewConclaveMCPServer(svc)
			return mcptools.RunStdio(cmd.Context(), server)
		},
	}
}
