package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Matchmaking queue commands",
	}

	cmd.AddCommand(newQueueJoinCmd())
	cmd.AddCommand(newQueueLeaveCmd())
	cmd.AddCommand(newQueueListCmd())

	return cmd
}

func newQueueJoinCmd() *cobra.Command {
	var region, connectionID string

	cmd := &cobra.Command{
		Use:   "join <player-id>",
		Short: "Put a player in the queue, enrolling them if new",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"player_id": args[0]}
			if region != "" {
				req["region"] = region
			}
			if connectionID != "" {
				req["connection_id"] = connectionID
			}
			var result QueueEntry

			if err := client.Post("/api/v1/queue", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Region to queue in (defaults to the player's region)")
	cmd.Flags().StringVar(&connectionID, "connection-id", "", "Client connection to notify on match")

	return cmd
}

func newQueueLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <player-id>",
		Short: "Remove a player from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(fmt.Sprintf("/api/v1/queue/%s", url.PathEscape(args[0]))); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left queue")
			return nil
		},
	}
}

func newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <region>",
		Short: "List a region's queue, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Queue

			if err := client.Get(fmt.Sprintf("/api/v1/queue/%s", url.PathEscape(args[0])), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
