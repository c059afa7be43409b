// personad runs, replays, and inspects persona drift-control sessions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "personad",
		Short:        "Persona psychological-state and drift-correction controller",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newReplayCmd(), newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
