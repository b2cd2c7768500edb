package config

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}
	getEnvOr := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return fallback
	}
	getIntOr := func(key string, fallback int) int {
		if value, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(value)
			if err != nil {
				log.Fatalf("Error: Environment variable %s must be an integer, got %q.", key, value)
			}
			return n
		}
		return fallback
	}
	getFloatOr := func(key string, fallback float64) float64 {
		if value, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				log.Fatalf("Error: Environment variable %s must be a number, got %q.", key, value)
			}
			return f
		}
		return fallback
	}

	initialMu := getFloatOr("RATING_INITIAL_MU", 25.0)

	cfg := Config{
		DBName:     getEnv("DB_NAME"),
		Port:       getEnv("PORT"),
		AdminToken: getEnv("ADMIN_TOKEN"),
		Turso: TursoConfig{
			PrimaryURL: getEnvOr("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvOr("TURSO_AUTH_TOKEN", ""),
		},
		Slack: SlackConfig{
			Token:     getEnvOr("SLACK_BOT_TOKEN", ""),
			ChannelID: getEnvOr("SLACK_CHANNEL_ID", ""),
		},
		ProjectID: getEnvOr("GCP_PROJECT", ""),
		Rating: RatingConfig{
			InitialMu:    initialMu,
			InitialSigma: getFloatOr("RATING_INITIAL_SIGMA", initialMu/3.0),
		},
		Session: SessionConfig{
			MaxTxRecords: getIntOr("MAX_TX_RECORDS", 25),
			SearchTrials: getIntOr("PAIRING_SEARCH_TRIALS", 64),
		},
	}
	return cfg
}
