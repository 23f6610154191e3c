package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SCHEDCHAT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "SCHEDCHAT_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "ollama.base_url", typ: kString, env: "SCHEDCHAT_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "SCHEDCHAT_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SCHEDCHAT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "dialogue.gateway_timeout", typ: kString, env: "SCHEDCHAT_DIALOGUE_GATEWAY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Dialogue.GatewayTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Dialogue.GatewayTimeout },
	},
	{
		key: "reminder.poll_interval", typ: kString, env: "SCHEDCHAT_REMINDER_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Reminder.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Reminder.PollInterval },
	},
	{
		key: "log.level", typ: kString, env: "SCHEDCHAT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// Keys lists the known config keys for `schedchat config list`.
func Keys() []string {
	keys := make([]string, len(specs))
	for i, s := range specs {
		keys[i] = s.key
	}
	return keys
}

// IsSecret reports whether a key's value should be masked in display output.
func IsSecret(key string) bool {
	for _, s := range specs {
		if s.key == key {
			return s.secret
		}
	}
	return false
}

// Get returns the effective value of a key from a loaded config.
func Get(cfg Config, key string) (any, bool) {
	for _, s := range specs {
		if s.key == key {
			return s.extract(cfg), true
		}
	}
	return nil, false
}

// Set writes a key to the file backend.
func Set(key, value string) error {
	b := newFileBackend()
	for _, s := range specs {
		if s.key != key {
			continue
		}
		switch s.typ {
		case kInt:
			i, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("key %s expects an integer: %w", key, err)
			}
			return b.SetInt(key, i)
		default:
			return b.SetString(key, value)
		}
	}
	return fmt.Errorf("unknown config key %q", key)
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
