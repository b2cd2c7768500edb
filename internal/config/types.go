package config

// Config holds all configuration for the application.
type Config struct {
	DBName     string
	Port       string
	AdminToken string
	Turso      TursoConfig
	Slack      SlackConfig
	ProjectID  string
	Rating     RatingConfig
	Session    SessionConfig
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type SlackConfig struct {
	Token     string
	ChannelID string
}

// RatingConfig controls the prior used for players without a stored rating.
type RatingConfig struct {
	InitialMu    float64
	InitialSigma float64
}

// SessionConfig bounds the orchestrator's atomic transactions.
type SessionConfig struct {
	// MaxTxRecords caps the number of rows touched by a single match-start
	// transaction (1 meta row + 4 entries per court).
	MaxTxRecords int
	// SearchTrials is the number of randomized pairings the search strategy
	// evaluates per run.
	SearchTrials int
}
