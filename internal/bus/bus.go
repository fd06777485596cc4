// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/metrics"
)

// MetadataSender is the Watermill metadata key carrying the wire sender string.
const MetadataSender = "cmwapi_sender"

var (
	// ErrNilPublisher is returned when New is given a nil publisher.
	ErrNilPublisher = errors.New("publisher cannot be nil")

	// ErrNilSubscriber is returned when New is given a nil subscriber.
	ErrNilSubscriber = errors.New("subscriber cannot be nil")

	// ErrEmptyIdentity is returned when New is given a blank identity.
	ErrEmptyIdentity = errors.New("identity must not be empty")
)

// Option configures a Bus.
type Option func(*Bus)

// WithCircuitBreaker routes every publish through cb.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker[any]) Option {
	return func(b *Bus) { b.breaker = cb }
}

// withCloser registers a resource owned by the Bus, closed by Close.
func withCloser(fn func() error) Option {
	return func(b *Bus) { b.closers = append(b.closers, fn) }
}

// Bus implements Transport on top of a Watermill publisher and subscriber.
//
// Each channel has at most one subscription. Deliveries are acked as soon as
// they are read and handed to a per-subscription dispatcher that calls the
// handler in arrival order, so a handler may itself publish, subscribe or
// unsubscribe without stalling the underlying pub/sub.
type Bus struct {
	identity   string
	sender     string
	publisher  message.Publisher
	subscriber message.Subscriber
	breaker    *gobreaker.CircuitBreaker[any]
	closers    []func() error
	logger     zerolog.Logger

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
}

var _ Transport = (*Bus)(nil)

// New creates a Bus publishing as identity.
func New(identity string, pub message.Publisher, sub message.Subscriber, opts ...Option) (*Bus, error) {
	if identity == "" {
		return nil, ErrEmptyIdentity
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if sub == nil {
		return nil, ErrNilSubscriber
	}

	b := &Bus{
		identity:   identity,
		sender:     FormatSender(identity),
		publisher:  pub,
		subscriber: sub,
		subs:       make(map[string]*subscription),
		logger:     logging.WithComponent("bus").With().Str("identity", identity).Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Identity returns the identity this bus publishes as.
func (b *Bus) Identity() string {
	return b.identity
}

// Publish sends payload on channel with this bus's identity as sender.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.isClosed() {
		return ErrTransportClosed
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataSender, b.sender)
	msg.SetContext(ctx)

	start := time.Now()
	err := b.execute(func() error {
		return b.publisher.Publish(channel, msg)
	})
	metrics.RecordPublish(channel, time.Since(start), err)

	if err != nil {
		b.logger.Error().Err(err).Str("channel", channel).Msg("Publish failed")
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	b.logger.Trace().Str("channel", channel).Int("bytes", len(payload)).Msg("Published")
	return nil
}

func (b *Bus) execute(fn func() error) error {
	if b.breaker == nil {
		return fn()
	}
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// Subscribe registers h for channel, replacing any earlier handler.
func (b *Bus) Subscribe(channel string, h Handler) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if h == nil {
		return ErrNilHandler
	}
	if b.isClosed() {
		return ErrTransportClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := b.subscriber.Subscribe(ctx, channel)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	s := newSubscription(channel, h, cancel, b.logger)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.stop()
		go s.drain(msgs)
		return ErrTransportClosed
	}
	old := b.subs[channel]
	b.subs[channel] = s
	b.mu.Unlock()

	if old != nil {
		old.stop()
	}

	go s.read(msgs)
	go s.dispatch()

	b.logger.Debug().Str("channel", channel).Bool("replaced", old != nil).Msg("Subscribed")
	return nil
}

// Unsubscribe drops the handler for channel. Deliveries still queued for it
// are discarded. Unsubscribing an unknown channel is not an error.
func (b *Bus) Unsubscribe(channel string) error {
	b.mu.Lock()
	s := b.subs[channel]
	delete(b.subs, channel)
	b.mu.Unlock()

	if s != nil {
		s.stop()
		b.logger.Debug().Str("channel", channel).Msg("Unsubscribed")
	}
	return nil
}

// Subscribed reports whether channel currently has a handler.
func (b *Bus) Subscribed(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[channel]
	return ok
}

// Close stops every subscription and releases owned resources.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*subscription)
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}

	var errs []error
	for _, fn := range b.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type delivery struct {
	sender  string
	payload []byte
}

type subscription struct {
	channel string
	handler Handler
	cancel  context.CancelFunc
	logger  zerolog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []delivery
	active   bool
	finished bool
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newSubscription(channel string, h Handler, cancel context.CancelFunc, logger zerolog.Logger) *subscription {
	s := &subscription{
		channel: channel,
		handler: h,
		cancel:  cancel,
		logger:  logger,
		active:  true,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// read acks every message as it arrives and queues it for dispatch. It keeps
// draining until the subscriber closes the channel so publishers waiting on
// acks are never stranded.
func (s *subscription) read(msgs <-chan *message.Message) {
	for msg := range msgs {
		msg.Ack()
		s.mu.Lock()
		if s.active {
			s.queue = append(s.queue, delivery{
				sender:  msg.Metadata.Get(MetadataSender),
				payload: msg.Payload,
			})
			s.cond.Signal()
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.finished = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *subscription) drain(msgs <-chan *message.Message) {
	for msg := range msgs {
		msg.Ack()
	}
}

func (s *subscription) dispatch() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.finished && s.active {
			s.cond.Wait()
		}
		if !s.active || (s.finished && len(s.queue) == 0) {
			s.mu.Unlock()
			return
		}
		d := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(d)
	}
}

func (s *subscription) deliver(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordHandlerPanic(s.channel)
			s.logger.Error().
				Str("channel", s.channel).
				Interface("panic", r).
				Msg("Channel handler panicked")
		}
	}()

	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}

	metrics.RecordReceive(s.channel)
	s.handler(d.sender, d.payload)
}

func (s *subscription) stop() {
	s.mu.Lock()
	s.active = false
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()
	s.cancel()
}

// Healthy returns ErrTransportClosed once the bus is closed.
func (b *Bus) Healthy(context.Context) error {
	if b.isClosed() {
		return ErrTransportClosed
	}
	return nil
}
