package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string

	// Player session token for player and queue commands
	Token string

	// Game-server credentials for the match callbacks
	ClientID     string
	ClientSecret string

	Output  string
	Verbose bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("SKILLMATCH_SERVER", "http://localhost:8080"),
		Token:        os.Getenv("SKILLMATCH_TOKEN"),
		ClientID:     os.Getenv("SKILLMATCH_CLIENT_ID"),
		ClientSecret: os.Getenv("SKILLMATCH_CLIENT_SECRET"),
		Output:       "text",
		Verbose:      false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
