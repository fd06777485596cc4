// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package supervisor runs the long-lived parts of a map widget under a suture
v4 supervisor tree.

# Overview

	RootSupervisor ("cmwapi")
	├── TransportSupervisor ("transport-layer")
	│   └── EmbeddedNATSService (bus.mode=nats, bus.embedded_server=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── ChannelBindingService (adapter Bind/Unbind)
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (server.enabled=true)

Each layer counts failures on its own, so a crashing WebSocket hub does not
restart the HTTP server. Services live in the services subpackage.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewChannelBindingService(adapter))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

# Configuration

TreeConfig controls restart behavior. Zero values fall back to suture's
defaults: threshold 5, decay 30s, backoff 15s, shutdown timeout 10s.

# Service Interface

Return behavior of Serve:
  - nil: stopped cleanly, not restarted
  - suture.ErrDoNotRestart: one-shot, removed from the tree
  - any other error: restarted with backoff
  - ctx.Err() after cancellation: normal shutdown

The bus itself is not supervised. It is opened before the tree starts
because every channel module holds it, and it is closed after the tree
stops.
*/
package supervisor
