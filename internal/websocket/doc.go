// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package websocket pushes overlay tree changes and map.error records to
browser clients.

It uses gorilla/websocket with a hub-client architecture:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Each client runs a readPump (pings, tree requests) and a writePump (queued
messages and keepalive pings).

Message Types:

  - tree_changed: the overlay tree after a change, also sent on connect
  - map_error: a record received on map.error
  - ping / pong: application-level keepalive
  - request_tree: client asks for a fresh tree_changed

Usage:

	hub := websocket.NewHub()
	hub.SetTreeSource(manager)
	manager.BindTreeChangeHandler(hub.TreeObserver(manager))
	api.Error.AddHandler(hub.BroadcastMapError)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

Thread Safety:

All Hub methods are safe for concurrent use. Broadcast methods never block;
messages are dropped when the queue is full, and clients that fall behind
are disconnected.
*/
package websocket
