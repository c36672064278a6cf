// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from an optional config.yaml and
// environment variables. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 8080
	DefaultCallTimeout = 10 * time.Second
	DefaultLockTTL     = 60 * time.Second
	DefaultLockWait    = 15 * time.Second
	DefaultLayerURL    = "https://api.layer.com"
	DefaultStreamURL   = "https://chat.stream-io-api.com"

	// callsUnderLock is how many provider calls a delivery makes while it
	// holds the conversation lock: fetch, upsert users, create channel,
	// send message.
	callsUnderLock = 4
	lockTTLMargin  = 5 * time.Second
)

// MinLockTTL is the shortest lock lease that outlives a delivery whose
// every provider call runs up to callTimeout.
func MinLockTTL(callTimeout time.Duration) time.Duration {
	return callsUnderLock*callTimeout + lockTTLMargin
}

// ConfigError reports required configuration values that are missing or
// out of range. It is a startup-time failure, never a per-request one.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, "; "))
	}
	return strings.Join(parts, "; ")
}

// StreamConfig holds the destination (Stream Chat) credentials.
type StreamConfig struct {
	APIKey    string `yaml:"api_key" env:"STREAM_API_KEY"`
	APISecret string `yaml:"api_secret" env:"STREAM_API_SECRET"`
	BaseURL   string `yaml:"base_url" env:"STREAM_BASE_URL"`
}

// LayerConfig holds the source (Layer) credentials.
type LayerConfig struct {
	AppUUID string `yaml:"app_uuid" env:"LAYER_APP_UUID"`
	Token   string `yaml:"token" env:"LAYER_TOKEN"`
	BaseURL string `yaml:"base_url" env:"LAYER_BASE_URL"`
}

// Config holds all configuration for the sync service.
type Config struct {
	Stream StreamConfig `yaml:"stream"`
	Layer  LayerConfig  `yaml:"layer"`

	// Shared secret Layer signs webhook bodies with.
	WebhookSecret string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`

	Port int `yaml:"port" env:"PORT"`

	// Optional backing stores. Empty disables the feature.
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	// Upper bound for every outbound provider call.
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`

	// Per-conversation lock lease and how long a delivery waits for it.
	LockTTL  time.Duration `yaml:"lock_ttl" env:"LOCK_TTL"`
	LockWait time.Duration `yaml:"lock_wait" env:"LOCK_WAIT"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Load reads configuration from the YAML file at CONFIG_PATH (with ${VAR}
// expansion), overlays environment variables and fills defaults. It does
// not check required values; call Validate or ValidateLayer for that.
func Load() (*Config, error) {
	cfg := &Config{}

	configPath, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No file is fine; everything can come from the environment.
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = max(DefaultLockTTL, MinLockTTL(c.CallTimeout))
	}
	if c.LockWait <= 0 {
		c.LockWait = DefaultLockWait
	}
	c.Layer.BaseURL = firstNonEmpty(c.Layer.BaseURL, DefaultLayerURL)
	c.Stream.BaseURL = firstNonEmpty(c.Stream.BaseURL, DefaultStreamURL)
}

// Validate checks every value the webhook service needs.
func (c *Config) Validate() error {
	var missing []string
	missing = appendMissing(missing, "STREAM_API_KEY", c.Stream.APIKey)
	missing = appendMissing(missing, "STREAM_API_SECRET", c.Stream.APISecret)
	missing = appendMissing(missing, "LAYER_APP_UUID", c.Layer.AppUUID)
	missing = appendMissing(missing, "LAYER_TOKEN", c.Layer.Token)
	missing = appendMissing(missing, "WEBHOOK_SECRET", c.WebhookSecret)

	var invalid []string
	if minTTL := MinLockTTL(c.CallTimeout); c.LockTTL < minTTL {
		invalid = append(invalid, fmt.Sprintf(
			"LOCK_TTL %s must be at least %s (%d x CALL_TIMEOUT %s + %s)",
			c.LockTTL, minTTL, callsUnderLock, c.CallTimeout, lockTTLMargin,
		))
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return &ConfigError{Missing: missing, Invalid: invalid}
	}
	return nil
}

// ValidateLayer checks only the Layer credentials, for tools that never
// talk to Stream.
func (c *Config) ValidateLayer() error {
	var missing []string
	missing = appendMissing(missing, "LAYER_APP_UUID", c.Layer.AppUUID)
	missing = appendMissing(missing, "LAYER_TOKEN", c.Layer.Token)
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func appendMissing(missing []string, key, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(missing, key)
	}
	return missing
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
