package cli

import (
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Player session commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <player-id>",
		Short: "Issue a session token for a player (needs client credentials)",
		Long: `Issue a session token for a player.

The game server's client credentials are required. Pass the printed token
to later commands with --token or SKILLMATCH_TOKEN.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session

			req := map[string]string{"player_id": args[0]}
			if err := client.AsServer().Post("/api/v1/sessions", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	return cmd
}
