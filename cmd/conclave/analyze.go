package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/conclave/internal/history"
	"github.com/dusk-indust/conclave/internal/orchestrator"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		agents  []string
		asJSON  bool
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <prompt>",
		Short: "Run one analysis from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.pipeline.Close()

			enabled := a.cfg.EnabledAgents()
			if len(agents) > 0 {
				enabled = make([]orchestrator.AgentID, len(agents))
				for i, name := range agents {
					enabled[i] = orchestrator.AgentID(name)
				}
			}

			// Print progress while the run is in flight.
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range a.pipeline.Progress() {
					fmt.Fprintln(os.Stderr, formatEvent(ev))
					if ev.Status == orchestrator.StageDone.String() ||
						ev.Status == orchestrator.StatusAnalysisError {
						return
					}
				}
			}()

			result, err := a.pipeline.Analyze(cmd.Context(), orchestrator.Request{
				Prompt: args[0],
				Agents: enabled,
			})
			if err != nil {
				// Synchronous rejections emit no terminal event, so the
				// drain goroutine must not be waited on here.
				return err
			}
			<-done

			if archive {
				store, err := history.Open(a.cfg.HistoryPath)
				if err != nil {
					return err
				}
				defer store.Close()
				if _, err := store.Save(args[0], result); err != nil {
					a.log.Warn().Err(err).Msg("archiving run failed")
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			for agent, text := range result.Results {
				fmt.Printf("--- %s ---\n%s\n\n", agent, text)
			}
			fmt.Printf("--- validation ---\n%s\n\n", result.ValidationReport)
			fmt.Printf("--- optimal answer ---\n%s\n", result.OptimalAnswer)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&agents, "agents", nil, "agents to consult (default: all enabled in config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&archive, "archive", false, "save the result to the run history")
	return cmd
}
