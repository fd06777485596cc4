// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package api exposes a map widget over HTTP.

The router is built on go-chi/chi with go-chi/cors and go-chi/httprate.
Every response uses the APIResponse envelope.

Endpoints:

	GET    /api/v1/health                 overall status and named checks
	GET    /api/v1/health/live            liveness probe
	GET    /api/v1/health/ready           readiness probe (503 when a check fails)
	GET    /api/v1/overlays               overlay tree and counts
	GET    /api/v1/overlays/{overlayId}   one overlay and its features
	GET    /api/v1/channels               command channels and handler state
	POST   /api/v1/channels/{channel}     publish the body on a channel (202)
	POST   /api/v1/state/archive          archive the tree to the preference store
	POST   /api/v1/state/restore          merge the archived tree into the live one
	DELETE /api/v1/state                  delete the archived tree
	GET    /api/v1/ws                     WebSocket stream of tree and error events
	GET    /metrics                       Prometheus exposition

A channel may be named by its id ("map.overlay.create") or its operation
name ("overlay.create"). Bodies go through the same checks as any other
publish, so an invalid body is answered with 400 and a map.error record.
*/
package api
