package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if cfg.Telegram.ChannelUsername != "" && !strings.HasPrefix(cfg.Telegram.ChannelUsername, "@") {
		errs = append(errs, fmt.Errorf("telegram.channel_username %q must start with '@'", cfg.Telegram.ChannelUsername))
	}
	if cfg.Telegram.ChannelUsername == "" && cfg.Telegram.ChannelID == 0 {
		slog.Warn("no gate channel configured; subscription checks will be skipped")
	}
	for i, id := range cfg.Telegram.AdminIDs {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("telegram.admin_ids[%d] must be a positive user ID, got %d", i, id))
		}
	}

	if cfg.Groq.APIKey == "" {
		errs = append(errs, errors.New("groq.api_key is required"))
	}
	for i, m := range cfg.Groq.ChatModels {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("groq.chat_models[%d] must not be blank", i))
		}
	}

	return errors.Join(errs...)
}
