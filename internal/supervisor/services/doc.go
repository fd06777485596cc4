// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package services provides suture.Service wrappers for widget components.

Each wrapper turns a component lifecycle (Bind/Unbind, ListenAndServe,
RunWithContext, an already running server) into suture's Serve pattern and
names itself through fmt.Stringer for supervisor logs.

# Available Services

HTTPServerService wraps *http.Server. ListenAndServe runs in a goroutine;
on cancellation Shutdown drains connections within the configured timeout.

WebSocketHubService delegates to websocket.Hub.RunWithContext.

EmbeddedNATSService watches an embedded NATS server started by the bus
package. It fails when the server stops underneath it and shuts the server
down when the tree stops.

ChannelBindingService subscribes the engine adapter on Serve and
unsubscribes it on shutdown. A restart re-binds every channel.

The wrappers depend on small interfaces rather than the concrete types so
they can be tested with doubles and do not import the packages they run.
*/
package services
