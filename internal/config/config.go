// Package config provides the configuration schema and YAML loader for the
// examiner bot.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps [time.Duration] so YAML accepts "60s"-style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file via [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Telegram TelegramConfig `yaml:"telegram"`
	Groq     GroqConfig     `yaml:"groq"`
	Content  ContentConfig  `yaml:"content"`
	Data     DataConfig     `yaml:"data"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics server listens on
	// (e.g., ":8080"). Default: ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// TelegramConfig holds bot credentials and the channel used for the
// subscription gate.
type TelegramConfig struct {
	// Token is the bot API token. Required.
	Token string `yaml:"token"`

	// ChannelUsername is the public @username of the channel users must be
	// subscribed to (e.g., "@speaking_zone").
	ChannelUsername string `yaml:"channel_username"`

	// ChannelURL is the invite link shown when a user is not subscribed.
	ChannelURL string `yaml:"channel_url"`

	// ChannelID is the numeric chat ID of the gate channel. Used as a
	// fallback when the membership lookup by username fails.
	ChannelID int64 `yaml:"channel_id"`

	// AdminIDs lists Telegram user IDs allowed to use admin commands.
	AdminIDs []int64 `yaml:"admin_ids"`
}

// GroqConfig configures the Groq-hosted chat and transcription backends.
type GroqConfig struct {
	// APIKey authenticates against the Groq API. Required.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the default API endpoint. Leave empty for the
	// built-in default.
	BaseURL string `yaml:"base_url"`

	// ChatModels is the ordered failover list of grader model identifiers.
	// The first healthy model wins. Defaults to the llama-3 family chain.
	ChatModels []string `yaml:"chat_models"`

	// WhisperModel is the transcription model. Default: whisper-large-v3.
	WhisperModel string `yaml:"whisper_model"`

	// Timeout is the per-request HTTP timeout. Default: 60s.
	Timeout Duration `yaml:"timeout"`
}

// ContentConfig locates static exam content.
type ContentConfig struct {
	// ImageDir is the directory holding the numbered stage images
	// (image1.jpg … image34.jpg). Default: "images".
	ImageDir string `yaml:"image_dir"`
}

// DataConfig locates persisted runtime state.
type DataConfig struct {
	// Dir is the directory for stats.json and users.json. Default: "data".
	Dir string `yaml:"dir"`
}

// DefaultChatModels is the grader failover chain used when groq.chat_models
// is not configured.
var DefaultChatModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"llama3-70b-8192",
	"llama3-8b-8192",
}

// applyDefaults fills zero-value fields with their documented defaults.
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if len(c.Groq.ChatModels) == 0 {
		c.Groq.ChatModels = append([]string(nil), DefaultChatModels...)
	}
	if c.Groq.WhisperModel == "" {
		c.Groq.WhisperModel = "whisper-large-v3"
	}
	if c.Groq.Timeout <= 0 {
		c.Groq.Timeout = Duration(60 * time.Second)
	}
	if c.Content.ImageDir == "" {
		c.Content.ImageDir = "images"
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
}
