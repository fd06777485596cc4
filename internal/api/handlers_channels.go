// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/logging"
)

// ChannelInfo describes one command channel.
type ChannelInfo struct {
	ID         string `json:"id"`
	HasHandler bool   `json:"has_handler"`
}

// Channels lists the command channels sorted by id.
func (h *Handler) Channels(w http.ResponseWriter, r *http.Request) {
	chans := h.api.Channels()
	out := make([]ChannelInfo, 0, len(chans))
	for _, c := range chans {
		out = append(out, ChannelInfo{ID: c.ID(), HasHandler: c.HasHandler()})
	}
	NewResponseWriter(w, r).Success(out)
}

// PublishChannel publishes the request body on a channel as this widget.
func (h *Handler) PublishChannel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "channel")

	ch, ok := h.api.Channel(name)
	if !ok {
		rw.NotFound("unknown channel: " + name)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		rw.BadRequest("could not read request body")
		return
	}

	if err := ch.Send(r.Context(), body); err != nil {
		if errors.Is(err, cmwapi.ErrInvalidPayload) {
			rw.ValidationError("payload rejected", err.Error())
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("channel", ch.ID()).Msg("Publish failed")
		rw.ServiceUnavailable("publish failed: " + err.Error())
		return
	}

	rw.Accepted(map[string]any{
		"channel": ch.ID(),
		"sender":  h.api.Identity(),
	})
}
