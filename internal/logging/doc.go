// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

// Package logging provides zerolog-based structured logging for the map widget host.
//
// Every package logs through the global logger configured here, so that
// channel traffic, tree mutations, bus internals (Watermill, NATS) and the
// supervisor tree all end up in one structured stream.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("channel", "map.overlay.create").Msg("Published")
//	logging.Error().Err(err).Str("overlay_id", id).Msg("Render failed")
//
// # Component Loggers
//
//	log := logging.WithComponent("overlay-manager")
//	log.Debug().Int("overlays", n).Msg("Tree changed")
//
// # Adapters
//
// Two adapters let third-party libraries write through zerolog:
//
//   - SlogHandler: slog.Handler used by sutureslog for supervisor events
//   - WatermillAdapter: watermill.LoggerAdapter used by the bus publishers and subscribers
//
// # Configuration
//
// Environment Variables (read by internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
package logging
