// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package api

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status    string            `json:"status"`
	Identity  string            `json:"identity"`
	Widget    string            `json:"widget,omitempty"`
	Version   string            `json:"version,omitempty"`
	Transport string            `json:"transport,omitempty"`
	Overlays  int               `json:"overlays"`
	Features  int               `json:"features"`
	Clients   int               `json:"websocket_clients"`
	Checks    map[string]string `json:"checks"`
	Uptime    float64           `json:"uptime_seconds"`
}

// runChecks runs every check and returns name -> "ok" or the error text.
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(map[string]string)
	healthy := true
	for _, c := range h.healthChecks() {
		if err := c.check(ctx); err != nil {
			results[c.name] = err.Error()
			healthy = false
			continue
		}
		results[c.name] = "ok"
	}
	return results, healthy
}

// Health reports widget identity, tree counts and the named checks.
// It always answers 200; status is "degraded" when a check fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.runChecks(r.Context())
	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	overlays, features := h.manager.Counts()
	body := HealthStatus{
		Status:   status,
		Identity: h.api.Identity(),
		Overlays: overlays,
		Features: features,
		Checks:   checks,
		Uptime:   time.Since(h.startTime).Seconds(),
	}
	if h.config != nil {
		body.Widget = h.config.Widget.Name
		body.Version = h.config.Widget.Version
		body.Transport = h.config.Bus.Mode
	}
	if h.wsHub != nil {
		body.Clients = h.wsHub.GetClientCount()
	}
	NewResponseWriter(w, r).Success(body)
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. Returns 503 unless every check passes.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	checks, ready := h.runChecks(r.Context())
	rw := NewResponseWriter(w, r)
	if !ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "not ready", checks)
		return
	}
	rw.Success(map[string]any{
		"ready":  true,
		"checks": checks,
	})
}
