package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/persona-drift/internal/repository"
	"github.com/danielpatrickdp/persona-drift/internal/state"
)

func newInspectCmd() *cobra.Command {
	var (
		dbPath    string
		runID     string
		showCases bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump trajectory rows or repository cases from a run database",
		RunE: func(_ *cobra.Command, _ []string) error {
			if runID == "" && !showCases {
				return fmt.Errorf("nothing to inspect: pass --run or --cases")
			}

			store, err := state.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				if err := printTrajectory(store, runID); err != nil {
					return err
				}
			}
			if showCases {
				if err := printCases(store); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "run.db", "SQLite database path")
	cmd.Flags().StringVar(&runID, "run", "", "run id whose trajectory to print")
	cmd.Flags().BoolVar(&showCases, "cases", false, "print the exemplar repository contents")
	return cmd
}

func printTrajectory(store *state.Store, runID string) error {
	rows, err := store.Trajectory(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no trajectory for run %s", runID)
	}

	fmt.Printf("trajectory for run %s (%d events)\n", runID, len(rows))
	for _, r := range rows {
		fmt.Printf("  [%d] %s %-8s pcc=%.3f", r.EventIndex, r.Category, r.Status, r.PCCOriginal)
		if r.WasRewritten {
			fmt.Printf(" rewritten(%.3f, %s)", *r.PCCRewritten, r.Strategy)
		}
		fmt.Printf(" S=%.1f Mm=%.1f Ms=%.1f", r.Post.Short.Affect, r.Post.Mid.Meaning, r.Post.Mid.Strain)
		if r.FailReason != "" {
			fmt.Printf(" (%s)", r.FailReason)
		}
		fmt.Println()
	}
	return nil
}

func printCases(store *state.Store) error {
	repo, err := repository.NewPersistentRepository(store.DB(), repository.DefaultRepositoryConfig())
	if err != nil {
		return err
	}

	categories := repo.Categories()
	if len(categories) == 0 {
		fmt.Println("repository is empty")
		return nil
	}
	for _, cat := range categories {
		cases := repo.List(cat)
		fmt.Printf("category %s (%d cases)\n", cat, len(cases))
		for _, c := range cases {
			fmt.Printf("  %.2f %s | %s\n", c.Quality, c.AdmittedAt.Format("2006-01-02 15:04"), c.Event)
		}
	}
	return nil
}
