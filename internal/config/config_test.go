package config

import (
	"testing"
	"time"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend map[string]any

func (b mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (b mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (b mapBackend) SetString(key, val string) error { b[key] = val; return nil }
func (b mapBackend) SetInt(key string, val int) error { b[key] = val; return nil }
func (b mapBackend) Delete(key string) error         { delete(b, key); return nil }

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4600 {
		t.Errorf("Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if d, err := cfg.Dialogue.Timeout(); err != nil || d != 10*time.Second {
		t.Errorf("gateway timeout = %v (%v), want 10s", d, err)
	}
}

func TestLoad_BackendOverridesDefaults(t *testing.T) {
	cfg, err := loadWith(mapBackend{
		"server.port":  5000,
		"ollama.model": "qwen2.5",
	})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Ollama.Model != "qwen2.5" {
		t.Errorf("Model = %q, want qwen2.5", cfg.Ollama.Model)
	}
}

func TestLoad_EnvOverridesBackend(t *testing.T) {
	t.Setenv("SCHEDCHAT_SERVER_PORT", "6000")
	t.Setenv("SCHEDCHAT_API_TOKEN", "tok123")

	cfg, err := loadWith(mapBackend{"server.port": 5000})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Port = %d, want env override 6000", cfg.Server.Port)
	}
	if cfg.Server.APIToken != "tok123" {
		t.Errorf("APIToken = %q, want tok123", cfg.Server.APIToken)
	}
}

func TestLoad_BadDurationRejected(t *testing.T) {
	if _, err := loadWith(mapBackend{"dialogue.gateway_timeout": "soon"}); err == nil {
		t.Error("loadWith with bad duration succeeded, want error")
	}
}

func TestGetAndKeys(t *testing.T) {
	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if v, ok := Get(cfg, "log.level"); !ok || v != "info" {
		t.Errorf("Get(log.level) = %v/%v, want info", v, ok)
	}
	if _, ok := Get(cfg, "bogus.key"); ok {
		t.Error("Get(bogus.key) ok = true, want false")
	}
	if len(Keys()) != len(specs) {
		t.Errorf("Keys() returned %d entries, want %d", len(Keys()), len(specs))
	}
}
