// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package cmwapi

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cmwapi/internal/bus"
	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/validation"
)

// Handler receives the surviving commands of one inbound message, in the
// shape the sender used. sender is the sending widget's identity.
type Handler func(sender string, p Payload)

// Channel is the send/receive module of one command channel.
type Channel struct {
	rule      *rule
	transport bus.Transport
	errors    *ErrorChannel
	logger    zerolog.Logger

	mu      sync.Mutex
	wrapped bus.Handler
}

func newChannel(r *rule, t bus.Transport, errs *ErrorChannel) *Channel {
	return &Channel{
		rule:      r,
		transport: t,
		errors:    errs,
		logger:    logging.WithComponent("cmwapi").With().Str("channel", r.channel).Logger(),
	}
}

// ID returns the channel identifier, e.g. "map.overlay.create".
func (c *Channel) ID() string {
	return c.rule.channel
}

// Send validates data, applies defaults with this widget as the owner and
// publishes what is valid. data may be an object, a slice of objects, a
// Command, a Payload or raw JSON. Each invalid element is reported on
// map.error and dropped; ErrInvalidPayload is returned when nothing is left.
func (c *Channel) Send(ctx context.Context, data any) error {
	identity := c.transport.Identity()

	if p, ok := data.(Payload); ok {
		data = payloadValue(p)
	}

	res := validation.ValidObjectOrArray(data)
	if !res.Result {
		c.report(ctx, identity, rawText(data), res.Msg)
		return fmt.Errorf("%s: %w: %s", c.rule.channel, ErrInvalidPayload, res.Msg)
	}

	valid := c.normalize(ctx, identity, res.Payload)
	if len(valid) == 0 {
		return fmt.Errorf("%s: %w", c.rule.channel, ErrInvalidPayload)
	}

	body, err := json.Marshal(Payload{commands: valid, batch: res.Batch})
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", c.rule.channel, err)
	}
	if err := c.transport.Publish(ctx, c.rule.channel, body); err != nil {
		return fmt.Errorf("publish %s: %w", c.rule.channel, err)
	}
	return nil
}

func payloadValue(p Payload) any {
	if !p.batch && len(p.commands) == 1 {
		return map[string]any(p.commands[0])
	}
	out := make([]map[string]any, len(p.commands))
	for i, cmd := range p.commands {
		out[i] = cmd
	}
	return out
}

// AddHandler subscribes h to the channel, replacing any earlier handler.
// Inbound messages get the same defaults and checks as Send, with the
// sender's identity as the owner; h is only called when at least one
// element survives. The returned function is the registered bus handler.
func (c *Channel) AddHandler(h Handler) (bus.Handler, error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	wrapped := func(wireSender string, payload []byte) {
		sender := bus.ParseSender(wireSender)
		ctx := logging.ContextWithNewCorrelationID(context.Background())

		res := validation.ValidObjectOrArray(unquote(payload))
		if !res.Result {
			c.report(ctx, sender, string(payload), res.Msg)
			return
		}
		valid := c.normalize(ctx, sender, res.Payload)
		if len(valid) == 0 {
			return
		}
		h(sender, Payload{commands: valid, batch: res.Batch})
	}

	if err := c.transport.Subscribe(c.rule.channel, wrapped); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.rule.channel, err)
	}
	c.mu.Lock()
	c.wrapped = wrapped
	c.mu.Unlock()
	return wrapped, nil
}

// RemoveHandlers unsubscribes the channel.
func (c *Channel) RemoveHandlers() error {
	c.mu.Lock()
	c.wrapped = nil
	c.mu.Unlock()
	return c.transport.Unsubscribe(c.rule.channel)
}

// HasHandler reports whether a handler is registered through this module.
func (c *Channel) HasHandler() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrapped != nil
}

func (c *Channel) normalize(ctx context.Context, identity string, elems []map[string]any) []Command {
	valid := make([]Command, 0, len(elems))
	for _, elem := range elems {
		cmd := Command(elem)
		if msg := c.rule.apply(cmd, identity); msg != "" {
			c.report(ctx, identity, cmd, msg)
			continue
		}
		valid = append(valid, cmd)
	}
	return valid
}

func (c *Channel) report(ctx context.Context, sender string, payload any, msg string) {
	if err := c.errors.Send(ctx, sender, c.rule.channel, payload, msg); err != nil {
		c.logger.Error().Err(err).Str("correlation_id", logging.CorrelationIDFromContext(ctx)).
			Msg("Failed to publish error record")
	}
}

// rawText turns raw JSON input into a string so error records carry the
// text instead of base64.
func rawText(data any) any {
	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return string(rv.Bytes())
	}
	return data
}

// unquote unwraps payloads that were JSON-encoded twice, as some containers
// deliver a JSON string holding the message.
func unquote(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return payload
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return payload
	}
	return []byte(inner)
}
