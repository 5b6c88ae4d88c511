package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newCycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Matchmaking cycle commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one matchmaking pass over every region now",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CycleResult

			if err := client.AsServer().Post("/api/v1/matchmaking/cycle", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	})

	return cmd
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchReadyCmd())
	cmd.AddCommand(newMatchResultCmd())

	return cmd
}

func matchPath(id, suffix string) string {
	return fmt.Sprintf("/api/v1/matches/%s%s", url.PathEscape(id), suffix)
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <match-id>",
		Short: "Show a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match

			if err := client.Get(matchPath(args[0], ""), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchReadyCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "ready <match-id>",
		Short: "Report that a game server is ready for the match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"server_addr": addr}
			var result Match

			if err := client.AsServer().Post(matchPath(args[0], "/ready"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Game server address (required)")
	_ = cmd.MarkFlagRequired("addr")

	return cmd
}

func newMatchResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <match-id> <team1|team2|draw|home|away>",
		Short: "Record a match outcome and update ratings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"result": args[1]}
			var result Resolution

			if err := client.AsServer().Post(matchPath(args[0], "/result"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
