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

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad_YAMLWithExpansion verifies file parsing and ${VAR} expansion.
func TestLoad_YAMLWithExpansion(t *testing.T) {
	t.Setenv("TEST_STREAM_SECRET", "from-env")
	path := writeConfig(t, `
stream:
  api_key: key-1
  api_secret: ${TEST_STREAM_SECRET}
layer:
  app_uuid: app-1
  token: tok-1
webhook_secret: hook
port: 9000
call_timeout: 3s
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Stream.APISecret != "from-env" {
		t.Errorf("APISecret = %q, want from-env", cfg.Stream.APISecret)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.CallTimeout != 3*time.Second {
		t.Errorf("CallTimeout = %v, want 3s", cfg.CallTimeout)
	}
	if cfg.LockTTL != DefaultLockTTL {
		t.Errorf("LockTTL = %v, want default %v", cfg.LockTTL, DefaultLockTTL)
	}
	if cfg.Layer.BaseURL != DefaultLayerURL {
		t.Errorf("Layer.BaseURL = %q", cfg.Layer.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// TestLoad_EnvOverridesFile verifies environment variables win over YAML.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "port: 9000\nwebhook_secret: file-secret\n")
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "7000")
	t.Setenv("WEBHOOK_SECRET", "env-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Port)
	}
	if cfg.WebhookSecret != "env-secret" {
		t.Errorf("WebhookSecret = %q, want env-secret", cfg.WebhookSecret)
	}
}

// TestLoad_ExplicitMissingFile verifies an explicit CONFIG_PATH must exist.
func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

// TestValidate_ReportsAllMissing verifies every absent secret is listed.
func TestValidate_ReportsAllMissing(t *testing.T) {
	cfg := &Config{Stream: StreamConfig{APIKey: "k"}}

	err := cfg.Validate()
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}

	want := []string{"STREAM_API_SECRET", "LAYER_APP_UUID", "LAYER_TOKEN", "WEBHOOK_SECRET"}
	if len(cerr.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", cerr.Missing, want)
	}
	for i := range want {
		if cerr.Missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, cerr.Missing[i], want[i])
		}
	}
}

// TestLoad_LockTTLOutlivesCalls verifies the default lease covers every
// provider call made under the lock.
func TestLoad_LockTTLOutlivesCalls(t *testing.T) {
	tests := []struct {
		callTimeout string
		want        time.Duration
	}{
		{callTimeout: "10s", want: DefaultLockTTL},
		{callTimeout: "20s", want: 85 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.callTimeout, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", writeConfig(t, "call_timeout: "+tt.callTimeout+"\n"))

			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.LockTTL != tt.want {
				t.Errorf("LockTTL = %v, want %v", cfg.LockTTL, tt.want)
			}
			if cfg.LockTTL <= callsUnderLock*cfg.CallTimeout {
				t.Errorf("LockTTL %v does not outlive %d calls of %v", cfg.LockTTL, callsUnderLock, cfg.CallTimeout)
			}
		})
	}
}

// TestValidate_LockTTLTooShort verifies an explicit lease shorter than the
// calls it guards is rejected at startup.
func TestValidate_LockTTLTooShort(t *testing.T) {
	cfg := &Config{
		Stream:        StreamConfig{APIKey: "k", APISecret: "s"},
		Layer:         LayerConfig{AppUUID: "app", Token: "tok"},
		WebhookSecret: "hook",
		CallTimeout:   10 * time.Second,
		LockTTL:       30 * time.Second,
	}

	err := cfg.Validate()
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(cerr.Missing) != 0 || len(cerr.Invalid) != 1 {
		t.Fatalf("missing = %v, invalid = %v", cerr.Missing, cerr.Invalid)
	}
	if !strings.Contains(cerr.Invalid[0], "LOCK_TTL") {
		t.Errorf("invalid = %q, want it to name LOCK_TTL", cerr.Invalid[0])
	}

	cfg.LockTTL = MinLockTTL(cfg.CallTimeout)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with minimum lease: %v", err)
	}
}

// TestValidateLayer verifies the CLI-only validation ignores Stream values.
func TestValidateLayer(t *testing.T) {
	cfg := &Config{Layer: LayerConfig{AppUUID: "app", Token: "tok"}}
	if err := cfg.ValidateLayer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Layer.Token = " "
	if err := cfg.ValidateLayer(); err == nil {
		t.Error("expected error for blank token")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
