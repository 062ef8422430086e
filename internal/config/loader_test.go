package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	yml := `
server:
  listen_addr: ":9090"
  log_level: debug
provider:
  stt:
    name: deepgram
    api_key: dg-test-key
    model: nova-2
    language: en-GB
    sample_rate: 48000
    noop_fallback: true
database:
  url: postgres://localhost:5432/spellproof
learning:
  window_days: 14
  max_events: 100
  min_occurrences: 3
  initial_confidence: 0.8
  reinforce_step: 0.05
  max_confidence: 0.95
scheduler:
  enabled: true
  interval: 5m
  user_limit: 10
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Provider.STT.Model != "nova-2" {
		t.Errorf("stt.model = %q, want nova-2", cfg.Provider.STT.Model)
	}
	if cfg.Provider.STT.SampleRate != 48000 {
		t.Errorf("stt.sample_rate = %d, want 48000", cfg.Provider.STT.SampleRate)
	}
	if !cfg.Provider.STT.NoopFallback {
		t.Error("stt.noop_fallback = false, want true")
	}
	if cfg.Learning.MinOccurrences != 3 {
		t.Errorf("learning.min_occurrences = %d, want 3", cfg.Learning.MinOccurrences)
	}
	if cfg.Scheduler.Interval != 5*time.Minute {
		t.Errorf("scheduler.interval = %s, want 5m", cfg.Scheduler.Interval)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	yml := `
provider:
  stt:
    name: noop
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Provider.STT.Language != "en-US" {
		t.Errorf("stt.language = %q, want en-US", cfg.Provider.STT.Language)
	}
	if cfg.Provider.STT.SampleRate != 16000 {
		t.Errorf("stt.sample_rate = %d, want 16000", cfg.Provider.STT.SampleRate)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Errorf("scheduler.interval = %s, want 15m", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.UserLimit != 50 {
		t.Errorf("scheduler.user_limit = %d, want 50", cfg.Scheduler.UserLimit)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yml := `
server:
  listen_adr: ":8080"
`
	if _, err := LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Fatal("want decode error for misspelled field, got nil")
	}
}

func TestLoadFromReader_EnvFallbackForAPIKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-from-env")

	yml := `
provider:
  stt:
    name: deepgram
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Provider.STT.APIKey != "dg-from-env" {
		t.Errorf("api_key = %q, want dg-from-env", cfg.Provider.STT.APIKey)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid log level", func(c *Config) { c.Server.LogLevel = "verbose" }},
		{"deepgram without key", func(c *Config) {
			c.Provider.STT.Name = "deepgram"
			c.Provider.STT.APIKey = ""
		}},
		{"tls missing key file", func(c *Config) {
			c.Server.TLS = &TLSConfig{CertFile: "cert.pem"}
		}},
		{"confidence out of range", func(c *Config) { c.Learning.InitialConfidence = 1.5 }},
		{"initial above max", func(c *Config) {
			c.Learning.InitialConfidence = 0.9
			c.Learning.MaxConfidence = 0.8
		}},
		{"negative window", func(c *Config) { c.Learning.WindowDays = -1 }},
		{"negative interval", func(c *Config) { c.Scheduler.Interval = -time.Minute }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Provider.STT.Name = "noop"
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("want validation error, got nil")
			}
		})
	}
}

func TestValidate_CleanConfigPasses(t *testing.T) {
	cfg := &Config{}
	cfg.Provider.STT.Name = "noop"
	cfg.Learning.InitialConfidence = 0.75
	cfg.Learning.MaxConfidence = 0.99
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
