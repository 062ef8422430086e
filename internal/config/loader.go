package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// validSTTProviders lists known STT provider names. Used by [Validate] to
// warn about unrecognised names.
var validSTTProviders = []string{"deepgram", "noop"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment fallbacks
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills credential fields from the environment when the YAML left
// them empty. Keeps secrets out of config files checked into source control.
func applyEnv(cfg *Config) {
	if cfg.Provider.STT.APIKey == "" {
		cfg.Provider.STT.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
}

// applyDefaults replaces zero values with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Provider.STT.Name == "" {
		cfg.Provider.STT.Name = "deepgram"
	}
	if cfg.Provider.STT.Language == "" {
		cfg.Provider.STT.Language = "en-US"
	}
	if cfg.Provider.STT.SampleRate == 0 {
		cfg.Provider.STT.SampleRate = 16000
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 15 * time.Minute
	}
	if cfg.Scheduler.UserLimit == 0 {
		cfg.Scheduler.UserLimit = 50
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	stt := cfg.Provider.STT
	if stt.Name != "" && !slices.Contains(validSTTProviders, stt.Name) {
		slog.Warn("unknown stt provider name — may be a typo or third-party provider",
			"name", stt.Name,
			"known", validSTTProviders,
		)
	}
	if stt.Name == "deepgram" && stt.APIKey == "" {
		errs = append(errs, errors.New("provider.stt.api_key is required for deepgram (or set DEEPGRAM_API_KEY)"))
	}
	if stt.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("provider.stt.sample_rate %d is invalid", stt.SampleRate))
	}

	if cfg.Database.URL == "" {
		slog.Warn("database.url is empty; event logging and learned mappings will be in-memory only")
	}

	l := cfg.Learning
	if l.WindowDays < 0 {
		errs = append(errs, fmt.Errorf("learning.window_days %d is negative", l.WindowDays))
	}
	if l.InitialConfidence < 0 || l.InitialConfidence > 1 {
		errs = append(errs, fmt.Errorf("learning.initial_confidence %.2f is out of range [0, 1]", l.InitialConfidence))
	}
	if l.MaxConfidence < 0 || l.MaxConfidence > 1 {
		errs = append(errs, fmt.Errorf("learning.max_confidence %.2f is out of range [0, 1]", l.MaxConfidence))
	}
	if l.InitialConfidence > 0 && l.MaxConfidence > 0 && l.InitialConfidence > l.MaxConfidence {
		errs = append(errs, fmt.Errorf("learning.initial_confidence %.2f exceeds learning.max_confidence %.2f", l.InitialConfidence, l.MaxConfidence))
	}

	if cfg.Scheduler.Interval < 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval %s is negative", cfg.Scheduler.Interval))
	}

	return errors.Join(errs...)
}
