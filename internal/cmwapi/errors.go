// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package cmwapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cmwapi/internal/bus"
	"github.com/tomtom215/cmwapi/internal/channels"
	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/metrics"
)

// Error record types.
const (
	ErrorTypeValidation = "validation error"
	ErrorTypeInternal   = "internal error"
)

var (
	// ErrInvalidPayload is returned by Send when nothing valid was left to publish.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrNilHandler is returned by AddHandler when given a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// ErrorRecord is published on map.error.
type ErrorRecord struct {
	Sender  string `json:"sender"`
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Msg     string `json:"msg"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorHandler receives decoded error records.
type ErrorHandler func(sender string, rec ErrorRecord)

// ErrorChannel publishes and consumes map.error records. It never reports
// its own failures on the bus.
type ErrorChannel struct {
	transport bus.Transport
	logger    zerolog.Logger

	mu      sync.Mutex
	wrapped bus.Handler
}

// NewErrorChannel returns the error channel module for t.
func NewErrorChannel(t bus.Transport) *ErrorChannel {
	return &ErrorChannel{
		transport: t,
		logger:    logging.WithComponent("cmwapi").With().Str("channel", channels.MapError).Logger(),
	}
}

// Send publishes a validation error about payload received or sent on channel.
func (e *ErrorChannel) Send(ctx context.Context, sender, channel string, payload any, msg string) error {
	return e.publish(ctx, ErrorRecord{
		Sender:  sender,
		Type:    ErrorTypeValidation,
		Channel: channel,
		Msg:     msg,
		Payload: payload,
	})
}

// SendInternal publishes an internal error such as a persistence failure.
func (e *ErrorChannel) SendInternal(ctx context.Context, sender, msg string, cause error) error {
	rec := ErrorRecord{Sender: sender, Type: ErrorTypeInternal, Msg: msg}
	if cause != nil {
		rec.Error = cause.Error()
	}
	return e.publish(ctx, rec)
}

func (e *ErrorChannel) publish(ctx context.Context, rec ErrorRecord) error {
	metrics.RecordChannelError(rec.Channel, rec.Type)
	e.logger.Warn().
		Str("type", rec.Type).
		Str("origin", rec.Channel).
		Str("sender", rec.Sender).
		Msg(rec.Msg)

	body, err := json.Marshal(rec)
	if err != nil {
		// Drop whatever could not be encoded rather than failing the report.
		rec.Payload = nil
		if body, err = json.Marshal(rec); err != nil {
			return fmt.Errorf("encode error record: %w", err)
		}
	}
	return e.transport.Publish(ctx, channels.MapError, body)
}

// AddHandler subscribes h to map.error, replacing any earlier handler.
// Records that cannot be decoded are logged and dropped.
func (e *ErrorChannel) AddHandler(h ErrorHandler) (bus.Handler, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	wrapped := func(sender string, payload []byte) {
		var rec ErrorRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			e.logger.Debug().Err(err).Msg("Dropping undecodable error record")
			return
		}
		h(bus.ParseSender(sender), rec)
	}
	if err := e.transport.Subscribe(channels.MapError, wrapped); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", channels.MapError, err)
	}

	e.mu.Lock()
	e.wrapped = wrapped
	e.mu.Unlock()
	return wrapped, nil
}

// RemoveHandlers unsubscribes map.error.
func (e *ErrorChannel) RemoveHandlers() error {
	e.mu.Lock()
	e.wrapped = nil
	e.mu.Unlock()
	return e.transport.Unsubscribe(channels.MapError)
}
