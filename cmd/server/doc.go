// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package main runs one headless CMWAPI map widget.

The widget joins a message bus, binds the map.* command channels to its
overlay tree and answers status requests. A companion HTTP API shows the
tree, lets local tools publish on any channel and streams tree changes over
WebSocket.

# Application Architecture

	RootSupervisor ("cmwapi")
	├── TransportSupervisor ("transport-layer")
	│   └── Embedded NATS server (bus.mode=nats, NATS_EMBEDDED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Channel bindings (adapter)
	│   └── WebSocket hub
	└── APISupervisor ("api-layer")
	    └── HTTP server (HTTP_ENABLED=true)

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Bus: Watermill gochannel or NATS, publish guarded by a circuit breaker
 4. Channel modules and the map.error channel
 5. Preference store: BadgerDB
 6. Overlay tree manager, restored from the last archive
 7. Engine adapter, WebSocket hub, HTTP API
 8. Supervisor tree

# Configuration

	WIDGET_INSTANCE_ID=widget-1     # sender identity, generated when empty
	WIDGET_NAME="CMWAPI Map Widget" # map.status.about widgetName
	BUS_MODE=memory                 # memory or nats
	NATS_URL=nats://127.0.0.1:4222  # used when NATS_EMBEDDED=false
	NATS_EMBEDDED=true              # run a NATS server in process
	STATE_PATH=/data/cmwapi/preferences
	STATE_AUTO_ARCHIVE=false        # archive after every tree change
	STATE_RESTORE_ON_START=true
	HTTP_PORT=8642
	CORS_ORIGINS=*
	LOG_LEVEL=info
	LOG_FORMAT=json

# Example Usage

Two widgets sharing an embedded NATS bus:

	BUS_MODE=nats WIDGET_INSTANCE_ID=map-a HTTP_PORT=8642 ./cmwapi
	BUS_MODE=nats NATS_EMBEDDED=false WIDGET_INSTANCE_ID=map-b HTTP_PORT=8643 STATE_PATH=/tmp/map-b ./cmwapi

	curl -X POST localhost:8643/api/v1/channels/overlay.create -d '{"overlayId":"roads","name":"Roads"}'
	curl localhost:8642/api/v1/overlays

# Signal Handling

SIGINT and SIGTERM cancel the root context. The tree stops the HTTP server,
the hub and the bindings, then the bus and the preference store are closed.
*/
package main
