// Package config loads layered configuration: baked-in defaults, then the
// JSON config file, then SCHEDCHAT_* environment variables on top.
package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig
	Ollama   OllamaConfig
	Storage  StorageConfig
	Dialogue DialogueConfig
	Reminder ReminderConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
	// APIToken guards the management API. When empty the management routes
	// are not mounted.
	APIToken string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type DialogueConfig struct {
	// GatewayTimeout bounds each LLM round trip, e.g. "10s".
	GatewayTimeout string
}

type ReminderConfig struct {
	// PollInterval is how often the reminder worker sweeps, e.g. "30s".
	PollInterval string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Dialogue: DialogueConfig{
			GatewayTimeout: "10s",
		},
		Reminder: ReminderConfig{
			PollInterval: "30s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/schedchat/config.json, then applies SCHEDCHAT_*
// environment overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if _, err := cfg.Dialogue.Timeout(); err != nil {
		return Config{}, fmt.Errorf("invalid dialogue.gateway_timeout: %w", err)
	}
	if _, err := cfg.Reminder.Poll(); err != nil {
		return Config{}, fmt.Errorf("invalid reminder.poll_interval: %w", err)
	}
	return cfg, nil
}

// Timeout parses the gateway timeout duration.
func (d DialogueConfig) Timeout() (time.Duration, error) {
	return time.ParseDuration(d.GatewayTimeout)
}

// Poll parses the reminder poll interval.
func (r ReminderConfig) Poll() (time.Duration, error) {
	return time.ParseDuration(r.PollInterval)
}
