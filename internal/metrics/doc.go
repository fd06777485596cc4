// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package metrics provides Prometheus metrics for the map widget host.

All collectors are registered with the default registry through promauto and
exposed by the HTTP server at /metrics.

# Available Metrics

Bus:
  - cmwapi_messages_published_total{channel,result}
  - cmwapi_messages_received_total{channel}
  - cmwapi_publish_duration_seconds{channel}
  - cmwapi_handler_panics_total{channel}
  - circuit_breaker_state{name}, circuit_breaker_state_transitions_total

Protocol:
  - cmwapi_channel_errors_total{channel,type}

Tree and state:
  - cmwapi_overlays, cmwapi_features
  - cmwapi_tree_mutations_total{operation,result}
  - cmwapi_state_operations_total{operation,result}
  - cmwapi_state_snapshot_bytes

API:
  - api_requests_total, api_request_duration_seconds
  - websocket_connections, websocket_messages_sent_total
*/
package metrics
