// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package config provides centralized configuration management for the map widget host.

Configuration is layered with Koanf v2: struct defaults, then an optional YAML
file, then environment variables.

# Sections

  - widget: instance identity and map.status.about fields
  - bus: transport mode (memory or nats), NATS connection, circuit breaker
  - state: BadgerDB preference store and snapshot address
  - server: companion HTTP API
  - logging: zerolog level and format
  - supervisor: suture restart policy

# Environment Variables

Widget:
  - WIDGET_INSTANCE_ID: sender identity (default: random UUID)
  - WIDGET_NAME, WIDGET_VERSION, WIDGET_MAP_TYPE

Bus:
  - BUS_MODE: memory or nats (default: memory)
  - NATS_URL: external server URL when NATS_EMBEDDED=false
  - NATS_EMBEDDED, NATS_EMBEDDED_HOST, NATS_EMBEDDED_PORT

State:
  - STATE_PATH: Badger directory (default: /data/cmwapi/preferences)
  - STATE_IN_MEMORY: keep preferences in memory only
  - STATE_NAMESPACE, STATE_NAME: snapshot key (default: cmwapi.map / overlayState)
  - STATE_AUTO_ARCHIVE, STATE_RESTORE_ON_START

Server:
  - HTTP_ENABLED, HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8642)
  - CORS_ORIGINS: comma-separated origins
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

A config file path can be forced with CONFIG_PATH.
*/
package config
