// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package bus

import (
	"context"
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrTransportClosed is returned by operations on a closed transport.
	ErrTransportClosed = errors.New("transport is closed")

	// ErrEmptyChannel is returned when a channel id is blank.
	ErrEmptyChannel = errors.New("channel must not be empty")

	// ErrNilHandler is returned when Subscribe is given a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// Handler receives one delivery. sender is the wire sender string, usually
// {"id":"<identity>"}; use ParseSender to extract the id.
type Handler func(sender string, payload []byte)

// Transport is the host event bus capability consumed by the channel modules.
//
// Unsubscribe is channel-scoped: it drops every handler registered for the
// channel. Subscribing again on a channel replaces the earlier handler.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(channel string, h Handler) error
	Unsubscribe(channel string) error
	Identity() string
}

type senderEnvelope struct {
	ID string `json:"id"`
}

// FormatSender encodes an identity as the wire sender string.
func FormatSender(id string) string {
	b, err := json.Marshal(senderEnvelope{ID: id})
	if err != nil {
		return `{"id":""}`
	}
	return string(b)
}

// ParseSender returns the identity carried by a wire sender string.
// Both {"id":"w1"} and a bare "w1" are accepted.
func ParseSender(sender string) string {
	trimmed := strings.TrimSpace(sender)
	if strings.HasPrefix(trimmed, "{") {
		var env senderEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil {
			return env.ID
		}
	}
	return trimmed
}
