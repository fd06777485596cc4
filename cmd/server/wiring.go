// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/cmwapi/internal/bus"
	"github.com/tomtom215/cmwapi/internal/config"
	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/overlay"
)

// transport is the opened bus plus the embedded server it may own.
type transport struct {
	bus      *bus.Bus
	embedded *bus.EmbeddedServer
}

// openTransport opens the bus selected by cfg.Bus.Mode. In nats mode with
// an embedded server the server is started first and the bus connects to
// it instead of NATSURL.
func openTransport(cfg *config.Config) (*transport, error) {
	breaker := bus.NewCircuitBreaker(bus.BreakerConfig{
		Name:             "bus-publish",
		Interval:         cfg.Bus.BreakerInterval,
		Timeout:          cfg.Bus.BreakerTimeout,
		FailureThreshold: cfg.Bus.BreakerMaxFailures,
	})
	identity := cfg.Widget.InstanceID

	switch cfg.Bus.Mode {
	case config.BusModeNATS:
		t := &transport{}
		url := cfg.Bus.NATSURL
		if cfg.Bus.EmbeddedServer {
			srv, err := bus.NewEmbeddedServer(bus.ServerConfig{
				Host: cfg.Bus.EmbeddedHost,
				Port: cfg.Bus.EmbeddedPort,
			})
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS server: %w", err)
			}
			t.embedded = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}

		b, err := bus.NewNATS(identity, bus.NATSConfig{
			URL:           url,
			MaxReconnects: cfg.Bus.MaxReconnects,
			ReconnectWait: cfg.Bus.ReconnectWait,
		}, bus.WithCircuitBreaker(breaker))
		if err != nil {
			if t.embedded != nil {
				_ = t.embedded.Shutdown(context.Background())
			}
			return nil, fmt.Errorf("connect NATS bus: %w", err)
		}
		t.bus = b
		logging.Info().Str("url", url).Msg("NATS bus connected")
		return t, nil

	default:
		b, err := bus.NewInMemory(identity, bus.MemoryConfig{OutputBuffer: cfg.Bus.OutputBuffer},
			bus.WithCircuitBreaker(breaker))
		if err != nil {
			return nil, fmt.Errorf("open in-memory bus: %w", err)
		}
		logging.Info().Msg("In-memory bus opened")
		return &transport{bus: b}, nil
	}
}

func openPreferences(cfg config.StateConfig) (*overlay.BadgerPreferences, error) {
	prefs, err := overlay.OpenBadgerPreferences(overlay.BadgerConfig{
		Path:       cfg.Path,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}
	return prefs, nil
}
