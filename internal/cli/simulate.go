package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/skillmatch/internal/simulator"
)

func newSimulateCmd() *cobra.Command {
	sc := simulator.DefaultConfig()
	var mode string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the offline rating simulator",
		Long: `Simulates a synthetic population through the matchmaker and reports how
closely ratings track true skill. Runs locally; no server is needed.`,
		// no API client needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := simulator.ParseMode(mode)
			if err != nil {
				return err
			}
			sc.Mode = m

			var handler slog.Handler = slog.NewTextHandler(io.Discard, nil)
			if cfg.Verbose {
				handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
			}

			sim, err := simulator.New(sc, slog.New(handler))
			if err != nil {
				return err
			}
			report, err := sim.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", string(sc.Mode), "Rating mode: glicko, fixed")
	flags.IntVar(&sc.Players, "players", sc.Players, "Synthetic population size")
	flags.Float64Var(&sc.MinRating, "min-rating", sc.MinRating, "Lower end of the true-skill range")
	flags.Float64Var(&sc.MaxRating, "max-rating", sc.MaxRating, "Upper end of the true-skill range")
	flags.IntVar(&sc.TeamSize, "team-size", sc.TeamSize, "Players per team")
	flags.IntVar(&sc.Rounds, "rounds", sc.Rounds, "Queue rounds to simulate")
	flags.Uint64Var(&sc.Seed, "seed", sc.Seed, "Random seed")

	return cmd
}
