package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingSubscriptionKey is returned by Validate when no speech credential was supplied.
var ErrMissingSubscriptionKey = errors.New("speech subscription key is required (--subscription_key or AZURE_SPEECH_KEY)")

// Config holds all configuration for the narrator
type Config struct {
	// Azure Speech configuration
	SubscriptionKey string `envconfig:"AZURE_SPEECH_KEY"`
	Region          string `envconfig:"AZURE_SPEECH_REGION" default:"eastus"`

	// Base URL of the speech service. Optional; derived from Region when unset.
	SpeechEndpoint string `envconfig:"AZURE_SPEECH_ENDPOINT" default:""`

	VoiceName     string `envconfig:"SPEECH_VOICE" default:"en-GB-RyanNeural"`
	OutputFormat  string `envconfig:"SPEECH_OUTPUT_FORMAT" default:"riff-22050hz-16bit-mono-pcm"`
	SpeechTimeout int    `envconfig:"SPEECH_TIMEOUT" default:"60"` // seconds, per request

	// Presentation files
	InputFile  string `envconfig:"NARRATE_INPUT" default:"test.pptx"`
	OutputFile string `envconfig:"NARRATE_OUTPUT" default:"out.pptx"`

	// Parent directory for the per-run scratch space. Empty means the OS temp dir.
	ScratchDir string `envconfig:"NARRATE_SCRATCH_DIR" default:""`

	// Failure policy
	Strict                 bool `envconfig:"NARRATE_STRICT" default:"false"`
	MaxConsecutiveFailures int  `envconfig:"NARRATE_MAX_CONSECUTIVE_FAILURES" default:"0"` // 0 disables the breaker
	BreakerReset           int  `envconfig:"NARRATE_BREAKER_RESET" default:"0"`            // seconds before retrying an open breaker; 0 keeps it open

	// Observability configuration
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`  // Log level: debug, info, warn, error
	LogPretty   bool   `envconfig:"LOG_PRETTY" default:"true"` // Console output instead of JSON
	MetricsFile string `envconfig:"METRICS_FILE" default:""`   // Prometheus textfile written at exit
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields the narration flow cannot run without.
// The subscription key may come from a flag, so it is checked here rather than in Load.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SubscriptionKey) == "" {
		return ErrMissingSubscriptionKey
	}
	if c.Region == "" && c.SpeechEndpoint == "" {
		return fmt.Errorf("either AZURE_SPEECH_REGION or AZURE_SPEECH_ENDPOINT must be set")
	}
	if c.VoiceName == "" {
		return fmt.Errorf("voice name must not be empty")
	}
	if c.SpeechTimeout <= 0 {
		return fmt.Errorf("SPEECH_TIMEOUT must be positive, got %d", c.SpeechTimeout)
	}
	if c.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max consecutive failures must not be negative, got %d", c.MaxConsecutiveFailures)
	}
	if c.BreakerReset < 0 {
		return fmt.Errorf("NARRATE_BREAKER_RESET must not be negative, got %d", c.BreakerReset)
	}
	if c.InputFile == "" || c.OutputFile == "" {
		return fmt.Errorf("input and output presentation paths are required")
	}
	return nil
}

// SpeechBaseURL returns the speech service base URL without a trailing slash.
func (c *Config) SpeechBaseURL() string {
	if c.SpeechEndpoint != "" {
		return strings.TrimRight(c.SpeechEndpoint, "/")
	}
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com", c.Region)
}

// RequestTimeout returns SpeechTimeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.SpeechTimeout) * time.Second
}

// BreakerResetTimeout returns BreakerReset as a duration
func (c *Config) BreakerResetTimeout() time.Duration {
	return time.Duration(c.BreakerReset) * time.Second
}
