package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "skillmatch",
		Short: "CLI tool for the skillmatch matchmaking API",
		Long: `skillmatch is a CLI tool for the skill-based matchmaking service.

It covers player enrollment, queueing, matchmaking cycles and the game-server
match callbacks, and can run the offline rating simulator locally.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL, cfg.Token, cfg.ClientID, cfg.ClientSecret)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SKILLMATCH_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Player session token (env: SKILLMATCH_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "Game-server client ID (env: SKILLMATCH_CLIENT_ID)")
	rootCmd.PersistentFlags().StringVar(&cfg.ClientSecret, "client-secret", cfg.ClientSecret, "Game-server client secret (env: SKILLMATCH_CLIENT_SECRET)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newQueueCmd())
	rootCmd.AddCommand(newCycleCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newSimulateCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
