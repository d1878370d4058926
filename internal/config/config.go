package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Port        int    `env:"INTAKE_PORT" envDefault:"8760"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// ElevenLabs conversational AI
	ElevenLabsAPIKey  string        `env:"ELEVENLABS_API_KEY"`
	InterviewAgentID  string        `env:"ELEVENLABS_INTERVIEW_AGENT_ID"`
	ElevenLabsBaseURL string        `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io/v1"`
	ElevenLabsAppURL  string        `env:"ELEVENLABS_APP_URL" envDefault:"https://elevenlabs.io/app/talk-to"`
	ElevenLabsTimeout time.Duration `env:"ELEVENLABS_TIMEOUT" envDefault:"30s"`

	// Optional collaborators
	NatsURL       string `env:"NATS_URL"`
	NatsToken     string `env:"NATS_TOKEN"`
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	SlackChannel  string `env:"SLACK_SYNC_CHANNEL"`
	SyncSchedule  string `env:"SYNC_SCHEDULE"`

	// Interview analysis
	AnalysisProvider string `env:"ANALYSIS_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

// MissingError reports required configuration that is absent.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// RequireTranscripts checks the settings the sync reconciler cannot run without.
func (c Config) RequireTranscripts() error {
	var missing []string
	if c.ElevenLabsAPIKey == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	if c.InterviewAgentID == "" {
		missing = append(missing, "ELEVENLABS_INTERVIEW_AGENT_ID")
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

func (c Config) RequireStore() error {
	if c.DatabaseURL == "" {
		return &MissingError{Keys: []string{"DATABASE_URL"}}
	}
	return nil
}

// UsesSQLite reports whether DATABASE_URL points at a SQLite file rather than Postgres.
func (c Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite:") || strings.HasPrefix(c.DatabaseURL, "file:")
}

// SQLitePath strips the sqlite: scheme; file: URIs are passed to the driver as-is.
func (c Config) SQLitePath() string {
	if p, ok := strings.CutPrefix(c.DatabaseURL, "sqlite://"); ok {
		return p
	}
	if p, ok := strings.CutPrefix(c.DatabaseURL, "sqlite:"); ok {
		return p
	}
	return c.DatabaseURL
}

// AnalysisConfigured reports whether the selected analysis provider has credentials.
func (c Config) AnalysisConfigured() bool {
	switch c.AnalysisProvider {
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return c.AnthropicAPIKey != ""
	}
}
