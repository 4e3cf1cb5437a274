package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set by the linker at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "conclave",
		Short:         "Consult a panel of AI agents and synthesize one answer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "conclave.yaml", "path to the config file")

	root.AddCommand(newAnalyzeCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMCPCmd(&configPath))

	return root
}
