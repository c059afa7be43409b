package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/persona-drift/internal/replay"
)

func newReplayCmd() *cobra.Command {
	var (
		fixturePath string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a recorded fixture and report divergences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			fixture, err := replay.LoadFixture(fixturePath)
			if err != nil {
				return err
			}

			report, err := replay.NewHarness(fixture, log).Replay(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("replayed %d events: %d completed, %d skipped\n",
				report.Summary.Events, report.Summary.Completed, report.Summary.Skipped)
			if report.Clean() {
				fmt.Println("replay matches the recording")
				return nil
			}
			for _, d := range report.Divergences {
				fmt.Println(" ", d)
			}
			return fmt.Errorf("%d divergence(s) from the recording", len(report.Divergences))
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "fixture JSON path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cmd.MarkFlagRequired("fixture")
	return cmd
}
