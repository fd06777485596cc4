// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package bus is the event bus the CMWAPI channel modules publish on.

The channel modules only see the Transport interface: publish a payload on a
channel, subscribe one handler per channel, unsubscribe a channel, and the
widget's own identity. Bus implements it over Watermill so the same code runs
in-process (gochannel) or across processes (core NATS).

# Transports

	b, err := bus.NewInMemory("widget-1", bus.MemoryConfig{OutputBuffer: 256})

	srv, err := bus.NewEmbeddedServer(bus.ServerConfig{Host: "127.0.0.1", Port: 4222})
	b, err := bus.NewNATS("widget-1", bus.NATSConfig{URL: srv.ClientURL()},
	    bus.WithCircuitBreaker(bus.NewCircuitBreaker(bus.BreakerConfig{FailureThreshold: 5})))

Several widgets in one process can share a gochannel through NewInMemoryNetwork.

# Sender Identity

The publisher's identity travels in message metadata as the wire sender
string {"id":"<identity>"}. Handlers receive that string unchanged;
ParseSender extracts the id.

# Delivery

Every subscription has its own dispatcher goroutine, so handlers for one
channel run one at a time in arrival order, and handlers for different
channels may run concurrently. A panicking handler is recovered, logged and
counted; the subscription keeps running.
*/
package bus
