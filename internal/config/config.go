// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Detector defaults applied when a request omits them.
	Contamination float64

	// Narrative service configuration.
	NarrativeAPIKey    string
	NarrativeEnabled   bool
	NarrativeBaseURL   string
	NarrativeModel     string
	NarrativeTimeout   time.Duration
	NarrativeMaxTokens int

	// Anomaly alert publishing.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	narrativeTimeout, err := parsePositiveDuration("NARRATIVE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	contamination, err := parseContamination()
	if err != nil {
		return nil, err
	}

	maxTokens, err := parseNarrativeMaxTokens()
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("NARRATIVE_API_KEY")
	narrativeEnabled := apiKey != ""
	if v := os.Getenv("NARRATIVE_ENABLED"); v != "" {
		narrativeEnabled = v == "true"
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Contamination: contamination,

		NarrativeAPIKey:    apiKey,
		NarrativeEnabled:   narrativeEnabled,
		NarrativeBaseURL:   envOrDefault("NARRATIVE_BASE_URL", "https://api.openai.com"),
		NarrativeModel:     envOrDefault("NARRATIVE_MODEL", "gpt-4o-mini"),
		NarrativeTimeout:   narrativeTimeout,
		NarrativeMaxTokens: maxTokens,

		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "weather-anomaly-alerts"),
		KafkaEnabled:    kafkaEnabled,
	}

	if cfg.NarrativeEnabled && cfg.NarrativeAPIKey == "" {
		return nil, errors.New("NARRATIVE_ENABLED is true but NARRATIVE_API_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_ALERT_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseContamination() (float64, error) {
	s := os.Getenv("CONTAMINATION")
	if s == "" {
		return 0.05, nil
	}
	c, err := strconv.ParseFloat(s, 64)
	if err != nil || c <= 0 || c > 0.5 {
		return 0, errors.New("invalid CONTAMINATION: must be in (0, 0.5]")
	}
	return c, nil
}

func parseNarrativeMaxTokens() (int, error) {
	s := os.Getenv("NARRATIVE_MAX_TOKENS")
	if s == "" {
		return 500, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 4096 {
		return 0, errors.New("invalid NARRATIVE_MAX_TOKENS: must be in 1..4096")
	}
	return n, nil
}
