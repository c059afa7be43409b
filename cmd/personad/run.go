package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/persona-drift/internal/corrector"
	"github.com/danielpatrickdp/persona-drift/internal/oracle"
	"github.com/danielpatrickdp/persona-drift/internal/persona"
	"github.com/danielpatrickdp/persona-drift/internal/repository"
	"github.com/danielpatrickdp/persona-drift/internal/runner"
	"github.com/danielpatrickdp/persona-drift/internal/scorer"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

func newRunCmd() *cobra.Command {
	var (
		personaPath string
		eventsPath  string
		dbPath      string
		apiKey      string
		modelName   string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a persona run over an event sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if apiKey == "" {
				apiKey = os.Getenv("GEMINI_API_KEY")
			}
			if apiKey == "" {
				return fmt.Errorf("an API key is required (--api-key or GEMINI_API_KEY)")
			}

			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			p, err := persona.Load(personaPath)
			if err != nil {
				return err
			}
			events, err := runner.LoadEvents(eventsPath)
			if err != nil {
				return err
			}

			store, err := state.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			repo, err := repository.NewPersistentRepository(store.DB(), repository.DefaultRepositoryConfig())
			if err != nil {
				return err
			}

			cfg := oracle.DefaultGenAIConfig(apiKey)
			if modelName != "" {
				cfg.Model = modelName
			}
			o, err := oracle.NewGenAIOracle(ctx, cfg)
			if err != nil {
				return err
			}

			s, err := scorer.NewScorer(o, scorer.DefaultScorerConfig())
			if err != nil {
				return err
			}
			c := corrector.NewCorrector(s, repo, o, o, corrector.DefaultCorrectorConfig())

			r := runner.NewRunner(runner.Deps{
				Model:     p.NewModel(state.DefaultModelConfig()),
				Scorer:    s,
				Corrector: c,
				Repo:      repo,
				Oracle:    o,
				Embedder:  o,
				Store:     store,
				Log:       log,
			}, runner.DefaultRunnerConfig())

			runID := uuid.New().String()
			sum, err := r.Run(ctx, runID, p.Name, events)
			if err != nil {
				return err
			}

			stats := o.Stats()
			fmt.Printf("run %s finished\n", sum.RunID)
			fmt.Printf("  events:    %d (%d completed, %d skipped)\n", sum.Events, sum.Completed, sum.Skipped)
			fmt.Printf("  corrected: %d (%d failed corrections)\n", sum.Corrected, sum.Failed)
			fmt.Printf("  admitted:  %d cases\n", sum.Admitted)
			fmt.Printf("  mean pcc:  %.3f\n", sum.MeanPCC)
			fmt.Printf("  oracle:    %d calls, %d failures\n", stats.Calls, stats.Failures)
			return nil
		},
	}

	cmd.Flags().StringVar(&personaPath, "persona", "", "persona definition YAML")
	cmd.Flags().StringVar(&eventsPath, "events", "", "event sequence JSON")
	cmd.Flags().StringVar(&dbPath, "db", "run.db", "SQLite database path")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	cmd.Flags().StringVar(&modelName, "model", "", "override the generation model")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cmd.MarkFlagRequired("persona")
	cmd.MarkFlagRequired("events")
	return cmd
}
