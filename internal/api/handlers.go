// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package api

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/config"
	"github.com/tomtom215/cmwapi/internal/overlay"
	ws "github.com/tomtom215/cmwapi/internal/websocket"
)

// maxBodyBytes caps POST bodies on the channel endpoints.
const maxBodyBytes = 1 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

// Handler serves the HTTP endpoints for one widget.
type Handler struct {
	api       *cmwapi.API
	manager   *overlay.Manager
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time

	mu     sync.RWMutex
	checks []namedCheck
}

// NewHandler creates a handler. wsHub may be nil, in which case /ws answers 503.
func NewHandler(api *cmwapi.API, manager *overlay.Manager, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		api:       api,
		manager:   manager,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// AddHealthCheck registers a readiness check under name.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

func (h *Handler) healthChecks() []namedCheck {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]namedCheck(nil), h.checks...)
}
