// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/cmwapi/internal/overlay"
)

// await waits for a persistence future or the request context.
func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) stateFailed(rw *ResponseWriter, op string, err error) {
	if errors.Is(err, overlay.ErrNoPreferences) {
		rw.ServiceUnavailable("no preference store configured")
		return
	}
	rw.StateError(op, err)
}

func (h *Handler) stateResult(op string) map[string]any {
	namespace, name := h.manager.Namespace()
	overlays, features := h.manager.Counts()
	return map[string]any{
		"operation": op,
		"namespace": namespace,
		"name":      name,
		"overlays":  overlays,
		"features":  features,
	}
}

// ArchiveState stores the overlay tree in the preference store.
func (h *Handler) ArchiveState(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := await(r.Context(), h.manager.ArchiveState(r.Context())); err != nil {
		h.stateFailed(rw, "archive", err)
		return
	}
	rw.Success(h.stateResult("archive"))
}

// RestoreState merges the archived tree into the live one.
func (h *Handler) RestoreState(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := await(r.Context(), h.manager.RetrieveState(r.Context())); err != nil {
		h.stateFailed(rw, "restore", err)
		return
	}
	rw.Success(h.stateResult("restore"))
}

// DeleteState removes the archived tree.
func (h *Handler) DeleteState(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := await(r.Context(), h.manager.DeleteState(r.Context())); err != nil {
		h.stateFailed(rw, "delete", err)
		return
	}
	rw.Success(h.stateResult("delete"))
}
