// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package config

import (
	"fmt"
	"time"
)

// Bus modes.
const (
	BusModeMemory = "memory"
	BusModeNATS   = "nats"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or config.yaml)
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Widget     WidgetConfig     `koanf:"widget"`
	Bus        BusConfig        `koanf:"bus"`
	State      StateConfig      `koanf:"state"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// WidgetConfig identifies this map widget instance on the bus.
type WidgetConfig struct {
	// InstanceID is the identity used as the message sender and as the
	// default overlayId. Generated when empty.
	InstanceID string `koanf:"instance_id"`

	// Name is reported on map.status.about as widgetName.
	Name string `koanf:"name"`

	// Version is reported on map.status.about.
	Version string `koanf:"version"`

	// MapType is reported on map.status.about: 2-D, 3-D or other.
	MapType string `koanf:"map_type"`
}

// BusConfig selects and tunes the message transport.
type BusConfig struct {
	// Mode is "memory" (Watermill gochannel) or "nats".
	Mode string `koanf:"mode"`

	// OutputBuffer is the per-subscription channel buffer in memory mode.
	OutputBuffer int64 `koanf:"output_buffer"`

	NATSURL        string        `koanf:"nats_url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	EmbeddedHost   string        `koanf:"embedded_host"`
	EmbeddedPort   int           `koanf:"embedded_port"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`

	// Circuit breaker around Publish.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// StateConfig configures archive and restore of the overlay tree.
type StateConfig struct {
	// Path is the BadgerDB directory for widget preferences.
	Path string `koanf:"path"`

	// InMemory keeps preferences in an in-memory Badger instance.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync on every preference write.
	SyncWrites bool `koanf:"sync_writes"`

	// Namespace and Name address the persisted snapshot.
	Namespace string `koanf:"namespace"`
	Name      string `koanf:"name"`

	// AutoArchive archives after every tree change.
	AutoArchive bool `koanf:"auto_archive"`

	// RestoreOnStart replays the persisted snapshot at startup.
	RestoreOnStart bool `koanf:"restore_on_start"`

	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// ServerConfig configures the companion HTTP API.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config for file and env loading.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig tunes the suture supervisor tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration using the layered Koanf loader.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
