// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

// Package bustest provides a synchronous in-memory bus.Transport for tests.
package bustest

import (
	"context"
	"sync"

	"github.com/tomtom215/cmwapi/internal/bus"
)

// Published is one recorded publish.
type Published struct {
	Channel string
	Sender  string
	Payload []byte
}

// Loopback records every publish and delivers it inline to the handler
// subscribed on the same channel, including the publisher's own.
type Loopback struct {
	identity string

	mu        sync.Mutex
	handlers  map[string]bus.Handler
	published []Published

	// PublishErr, when set, is returned by Publish and nothing is recorded.
	PublishErr error
}

var _ bus.Transport = (*Loopback)(nil)

// NewLoopback returns a Loopback publishing as identity.
func NewLoopback(identity string) *Loopback {
	return &Loopback{
		identity: identity,
		handlers: make(map[string]bus.Handler),
	}
}

// Identity returns the loopback identity.
func (l *Loopback) Identity() string {
	return l.identity
}

// Publish records the message and calls the channel handler before returning.
func (l *Loopback) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	if l.PublishErr != nil {
		err := l.PublishErr
		l.mu.Unlock()
		return err
	}
	sender := bus.FormatSender(l.identity)
	l.published = append(l.published, Published{Channel: channel, Sender: sender, Payload: payload})
	h := l.handlers[channel]
	l.mu.Unlock()

	if h != nil {
		h(sender, payload)
	}
	return nil
}

// Subscribe registers h, replacing any earlier handler on channel.
func (l *Loopback) Subscribe(channel string, h bus.Handler) error {
	if channel == "" {
		return bus.ErrEmptyChannel
	}
	if h == nil {
		return bus.ErrNilHandler
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[channel] = h
	return nil
}

// Unsubscribe drops the handler on channel.
func (l *Loopback) Unsubscribe(channel string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, channel)
	return nil
}

// Subscribed reports whether channel has a handler.
func (l *Loopback) Subscribed(channel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.handlers[channel]
	return ok
}

// Deliver simulates a message from another widget. It returns false when no
// handler is subscribed on channel.
func (l *Loopback) Deliver(channel, senderID string, payload []byte) bool {
	l.mu.Lock()
	h := l.handlers[channel]
	l.mu.Unlock()
	if h == nil {
		return false
	}
	h(bus.FormatSender(senderID), payload)
	return true
}

// Published returns a copy of every recorded publish.
func (l *Loopback) Published() []Published {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Published, len(l.published))
	copy(out, l.published)
	return out
}

// PublishedOn returns the recorded publishes on channel.
func (l *Loopback) PublishedOn(channel string) []Published {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Published
	for _, p := range l.published {
		if p.Channel == channel {
			out = append(out, p)
		}
	}
	return out
}

// Last returns the most recent publish on channel.
func (l *Loopback) Last(channel string) (Published, bool) {
	on := l.PublishedOn(channel)
	if len(on) == 0 {
		return Published{}, false
	}
	return on[len(on)-1], true
}

// Reset clears the recorded publishes.
func (l *Loopback) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published = nil
}
