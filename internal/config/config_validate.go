// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateWidget(); err != nil {
		return err
	}
	if err := c.validateBus(); err != nil {
		return err
	}
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSupervisor(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWidget() error {
	if strings.TrimSpace(c.Widget.InstanceID) == "" {
		return fmt.Errorf("WIDGET_INSTANCE_ID must not be blank")
	}
	switch c.Widget.MapType {
	case "2-D", "3-D", "other":
		return nil
	default:
		return fmt.Errorf("WIDGET_MAP_TYPE must be one of 2-D, 3-D, other, got %q", c.Widget.MapType)
	}
}

func (c *Config) validateBus() error {
	switch c.Bus.Mode {
	case BusModeMemory:
		if c.Bus.OutputBuffer < 0 {
			return fmt.Errorf("BUS_OUTPUT_BUFFER must be non-negative, got %d", c.Bus.OutputBuffer)
		}
	case BusModeNATS:
		if err := c.validateNATS(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("BUS_MODE must be %q or %q, got %q", BusModeMemory, BusModeNATS, c.Bus.Mode)
	}

	if c.Bus.BreakerMaxFailures == 0 {
		return fmt.Errorf("BUS_BREAKER_MAX_FAILURES must be at least 1")
	}
	if c.Bus.BreakerTimeout <= 0 {
		return fmt.Errorf("BUS_BREAKER_TIMEOUT must be positive, got %v", c.Bus.BreakerTimeout)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.Bus.EmbeddedServer {
		if c.Bus.EmbeddedPort < 1 || c.Bus.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535, got %d", c.Bus.EmbeddedPort)
		}
		return nil
	}
	if !strings.HasPrefix(c.Bus.NATSURL, "nats://") && !strings.HasPrefix(c.Bus.NATSURL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://, got %q", c.Bus.NATSURL)
	}
	return nil
}

func (c *Config) validateState() error {
	if strings.TrimSpace(c.State.Namespace) == "" {
		return fmt.Errorf("STATE_NAMESPACE must not be blank")
	}
	if strings.TrimSpace(c.State.Name) == "" {
		return fmt.Errorf("STATE_NAME must not be blank")
	}
	if !c.State.InMemory && strings.TrimSpace(c.State.Path) == "" {
		return fmt.Errorf("STATE_PATH is required unless STATE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Server.RateLimitRequests)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive, got %v", c.Supervisor.FailureThreshold)
	}
	if c.Supervisor.ShutdownTimeout <= 0 {
		return fmt.Errorf("SUPERVISOR_SHUTDOWN_TIMEOUT must be positive, got %v", c.Supervisor.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
