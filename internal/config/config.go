// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for deskmate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/deskmate/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete deskmate configuration.
type Config struct {
	// Assistant service endpoint
	Service ServiceConfig `toml:"service" json:"service"`

	// Chat pipeline tuning
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Local storage
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServiceConfig locates the assistant service.
type ServiceConfig struct {
	// URL is the base URL of the service (e.g., "http://127.0.0.1:5000")
	URL string `toml:"url" json:"url"`
	// ChatPath is appended to URL for the streaming chat endpoint
	ChatPath string `toml:"chat_path" json:"chat_path"`
	// ConnectTimeoutSecs bounds the dial only; streams have no read timeout
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
}

// ChatConfig tunes the streaming pipeline.
type ChatConfig struct {
	// Mode is the session mode sent with each request
	Mode string `toml:"mode" json:"mode"`
	// PlaybackIntervalMs is the reveal cadence, one character per tick
	PlaybackIntervalMs int `toml:"playback_interval_ms" json:"playback_interval_ms"`
	// MaxMalformedLines escalates to an error after this many consecutive
	// unparsable lines; 0 disables escalation
	MaxMalformedLines int `toml:"max_malformed_lines" json:"max_malformed_lines"`
	// EventBuffer is the capacity of the reader-to-playback channel
	EventBuffer int `toml:"event_buffer" json:"event_buffer"`
}

// StorageConfig locates local state.
type StorageConfig struct {
	// DBPath is the sqlite database holding the model configuration
	DBPath string `toml:"db_path" json:"db_path"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	Dir        string `toml:"dir" json:"dir"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress"`
	Console    bool   `toml:"console" json:"console"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// MaxFPS caps how often in-progress snapshots are rendered
	MaxFPS int `toml:"max_fps" json:"max_fps"`
	// ShowStats shows timing after each reply
	ShowStats bool `toml:"show_stats" json:"show_stats"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a new Config with all default values.
func Default() *Config {
	dir := defaultDir()
	return &Config{
		Service: ServiceConfig{
			URL:                "http://127.0.0.1:5000",
			ChatPath:           "/api/chat",
			ConnectTimeoutSecs: 10,
		},
		Chat: ChatConfig{
			Mode:               "private",
			PlaybackIntervalMs: 10,
			MaxMalformedLines:  8,
			EventBuffer:        64,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(dir, "deskmate.db"),
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        filepath.Join(dir, "logs"),
			File:       "deskmate.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		UI: UIConfig{
			MaxFPS:    30,
			ShowStats: true,
		},
	}
}

// ChatURL returns the full streaming endpoint URL.
func (c *Config) ChatURL() string {
	return strings.TrimRight(c.Service.URL, "/") + "/" + strings.TrimLeft(c.Service.ChatPath, "/")
}

// PlaybackInterval returns the reveal cadence as a duration.
func (c *Config) PlaybackInterval() time.Duration {
	return time.Duration(c.Chat.PlaybackIntervalMs) * time.Millisecond
}

// ConnectTimeout returns the dial timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Service.ConnectTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the deskmate configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".deskmate"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func defaultDir() string {
	dir, err := ConfigDir()
	if err != nil {
		return ".deskmate"
	}
	return dir
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.deskmate/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. Missing keys keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// ReadFile decodes path over the defaults without environment overrides or
// validation, for editing the file in place. A missing file yields defaults.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return cfg, nil
}

// finish applies environment overrides, fills zero values and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# deskmate configuration file\n")
	buf.WriteString("# Generated by deskmate - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Service
	if u, err := url.Parse(c.Service.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "service.url",
			Message: fmt.Sprintf("invalid URL '%s', must be absolute (e.g., http://127.0.0.1:5000)", c.Service.URL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "service.url",
			Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
		})
	}
	if c.Service.ConnectTimeoutSecs < 1 || c.Service.ConnectTimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "service.connect_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 300, got %d", c.Service.ConnectTimeoutSecs),
		})
	}

	// Chat
	if strings.TrimSpace(c.Chat.Mode) == "" {
		errs = append(errs, ValidationError{Field: "chat.mode", Message: "must not be empty"})
	}
	if c.Chat.PlaybackIntervalMs < 1 || c.Chat.PlaybackIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "chat.playback_interval_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Chat.PlaybackIntervalMs),
		})
	}
	if c.Chat.MaxMalformedLines < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_malformed_lines",
			Message: fmt.Sprintf("must not be negative, got %d", c.Chat.MaxMalformedLines),
		})
	}
	if c.Chat.EventBuffer < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.event_buffer",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Chat.EventBuffer),
		})
	}

	// Log
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	// UI
	if c.UI.MaxFPS < 1 || c.UI.MaxFPS > 240 {
		errs = append(errs, ValidationError{
			Field:   "ui.max_fps",
			Message: fmt.Sprintf("must be between 1 and 240, got %d", c.UI.MaxFPS),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that cannot be meaningful with defaults.
// MaxMalformedLines is left alone because 0 disables escalation.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Service.URL == "" {
		c.Service.URL = d.Service.URL
	}
	if c.Service.ChatPath == "" {
		c.Service.ChatPath = d.Service.ChatPath
	}
	if c.Service.ConnectTimeoutSecs == 0 {
		c.Service.ConnectTimeoutSecs = d.Service.ConnectTimeoutSecs
	}
	if c.Chat.Mode == "" {
		c.Chat.Mode = d.Chat.Mode
	}
	if c.Chat.PlaybackIntervalMs == 0 {
		c.Chat.PlaybackIntervalMs = d.Chat.PlaybackIntervalMs
	}
	if c.Chat.EventBuffer == 0 {
		c.Chat.EventBuffer = d.Chat.EventBuffer
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = d.Storage.DBPath
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Dir == "" {
		c.Log.Dir = d.Log.Dir
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if c.UI.MaxFPS == 0 {
		c.UI.MaxFPS = d.UI.MaxFPS
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
//   - DESKMATE_SERVICE_URL: overrides service.url
//   - DESKMATE_CHAT_MODE: overrides chat.mode
//   - DESKMATE_LOG_LEVEL: overrides log.level
//   - DESKMATE_DB_PATH: overrides storage.db_path
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DESKMATE_SERVICE_URL"); v != "" {
		c.Service.URL = v
	}
	if v := os.Getenv("DESKMATE_CHAT_MODE"); v != "" {
		c.Chat.Mode = v
	}
	if v := os.Getenv("DESKMATE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DESKMATE_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "chat.mode").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "chat.mode").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks a dot-separated key through the struct, matching TOML tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns all configuration keys in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, section.Tag.Get("toml")+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}
