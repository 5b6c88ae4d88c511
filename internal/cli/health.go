package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health and round-trip time",
		Long: `Check that the matchmaking API answers.

With --wait the command keeps polling until the server reports ok or the
duration runs out, which is handy right after starting the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := pollHealth(client, wait)
			if err != nil {
				return err
			}
			result.Server = cfg.ServerURL

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long")

	return cmd
}

func pollHealth(c *Client, wait time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)
	for {
		var result HealthResult
		start := time.Now()
		err := c.Get("/api/v1/health", &result)
		result.LatencyMS = time.Since(start).Milliseconds()
		if err == nil && result.Status != "ok" {
			err = fmt.Errorf("server reports status %q", result.Status)
		}
		if err == nil || !time.Now().Before(deadline) {
			return result, err
		}
		time.Sleep(healthPollInterval)
	}
}
