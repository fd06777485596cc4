// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bus.Mode != BusModeMemory {
		t.Errorf("Bus.Mode = %q, want memory", cfg.Bus.Mode)
	}
	if cfg.State.Namespace != "cmwapi.map" || cfg.State.Name != "overlayState" {
		t.Errorf("State key = %s/%s", cfg.State.Namespace, cfg.State.Name)
	}
	if cfg.Widget.InstanceID != "" {
		t.Errorf("InstanceID should be generated at load time, got %q", cfg.Widget.InstanceID)
	}
	if cfg.Server.Addr() != "0.0.0.0:8642" {
		t.Errorf("Server.Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoadWithKoanf_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Widget.InstanceID == "" {
		t.Error("expected generated instance id")
	}
	if cfg.Bus.ReconnectWait != 2*time.Second {
		t.Errorf("ReconnectWait = %v, want 2s", cfg.Bus.ReconnectWait)
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
widget:
  instance_id: widget-from-file
  name: File Widget
bus:
  mode: nats
  embedded_port: 4333
state:
  in_memory: true
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STATE_CLOSE_TIMEOUT", "3s")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Widget.InstanceID != "widget-from-file" {
		t.Errorf("InstanceID = %q", cfg.Widget.InstanceID)
	}
	if cfg.Bus.Mode != BusModeNATS || cfg.Bus.EmbeddedPort != 4333 {
		t.Errorf("Bus = %+v", cfg.Bus)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should override file: Port = %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.State.CloseTimeout != 3*time.Second {
		t.Errorf("CloseTimeout = %v", cfg.State.CloseTimeout)
	}
	if !cfg.State.InMemory {
		t.Error("State.InMemory should come from file")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"NATS_URL":        "bus.nats_url",
		"LOG_LEVEL":       "logging.level",
		"STATE_NAMESPACE": "state.namespace",
		"PATH":            "",
		"HOME":            "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.applyDerivedDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown bus mode", func(c *Config) { c.Bus.Mode = "kafka" }, "BUS_MODE"},
		{"bad nats url", func(c *Config) {
			c.Bus.Mode = BusModeNATS
			c.Bus.EmbeddedServer = false
			c.Bus.NATSURL = "http://localhost"
		}, "NATS_URL"},
		{"bad embedded port", func(c *Config) {
			c.Bus.Mode = BusModeNATS
			c.Bus.EmbeddedPort = 0
		}, "NATS_EMBEDDED_PORT"},
		{"blank namespace", func(c *Config) { c.State.Namespace = " " }, "STATE_NAMESPACE"},
		{"missing state path", func(c *Config) { c.State.Path = "" }, "STATE_PATH"},
		{"in-memory state without path", func(c *Config) {
			c.State.Path = ""
			c.State.InMemory = true
		}, ""},
		{"bad http port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"disabled server ignores port", func(c *Config) {
			c.Server.Enabled = false
			c.Server.Port = 0
		}, ""},
		{"bad map type", func(c *Config) { c.Widget.MapType = "4-D" }, "WIDGET_MAP_TYPE"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"zero breaker failures", func(c *Config) { c.Bus.BreakerMaxFailures = 0 }, "BUS_BREAKER_MAX_FAILURES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
