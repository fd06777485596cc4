// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cmwapi/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type received struct {
	sender  string
	payload string
}

func collector() (Handler, <-chan received) {
	ch := make(chan received, 256)
	return func(sender string, payload []byte) {
		ch <- received{sender: sender, payload: string(payload)}
	}, ch
}

func expect(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return received{}
	}
}

func expectNone(t *testing.T, ch <-chan received) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("unexpected delivery %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestBus(t *testing.T, identity string, opts ...Option) *Bus {
	t.Helper()
	b, err := NewInMemory(identity, MemoryConfig{OutputBuffer: 16}, opts...)
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestParseSender(t *testing.T) {
	tests := map[string]string{
		`{"id":"widget-1"}`:          "widget-1",
		`  {"id":"w2","extra":true}`: "w2",
		"bare-id":                    "bare-id",
		`{not json`:                  "{not json",
		"":                           "",
	}
	for in, want := range tests {
		if got := ParseSender(in); got != want {
			t.Errorf("ParseSender(%q) = %q, want %q", in, got, want)
		}
	}
	if got := ParseSender(FormatSender("a\"b")); got != "a\"b" {
		t.Errorf("FormatSender round trip = %q", got)
	}
}

func TestNew_Validation(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{}, nil)
	defer ps.Close()

	if _, err := New("", ps, ps); !errors.Is(err, ErrEmptyIdentity) {
		t.Errorf("empty identity error = %v", err)
	}
	if _, err := New("w", nil, ps); !errors.Is(err, ErrNilPublisher) {
		t.Errorf("nil publisher error = %v", err)
	}
	if _, err := New("w", ps, nil); !errors.Is(err, ErrNilSubscriber) {
		t.Errorf("nil subscriber error = %v", err)
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := newTestBus(t, "widget-1")
	h, got := collector()

	if err := b.Subscribe("map.view.zoom", h); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := b.Publish(context.Background(), "map.view.zoom", []byte(`{"range":100}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	r := expect(t, got)
	if r.payload != `{"range":100}` {
		t.Errorf("payload = %s", r.payload)
	}
	if ParseSender(r.sender) != "widget-1" {
		t.Errorf("sender = %s", r.sender)
	}
}

func TestBus_PublishErrors(t *testing.T) {
	b := newTestBus(t, "widget-1")

	if err := b.Publish(context.Background(), "", nil); !errors.Is(err, ErrEmptyChannel) {
		t.Errorf("empty channel error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Publish(ctx, "map.view.zoom", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled ctx error = %v", err)
	}
	if err := b.Subscribe("map.view.zoom", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler error = %v", err)
	}

	if err := b.Healthy(context.Background()); err != nil {
		t.Errorf("Healthy() before close = %v", err)
	}
	_ = b.Close()
	if err := b.Healthy(context.Background()); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Healthy() after close = %v", err)
	}
	if err := b.Publish(context.Background(), "map.view.zoom", nil); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("closed publish error = %v", err)
	}
	h, _ := collector()
	if err := b.Subscribe("map.view.zoom", h); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("closed subscribe error = %v", err)
	}
}

func TestBus_SubscribeReplaces(t *testing.T) {
	b := newTestBus(t, "widget-1")
	first, gotFirst := collector()
	second, gotSecond := collector()

	if err := b.Subscribe("map.overlay.create", first); err != nil {
		t.Fatal(err)
	}
	if err := b.Subscribe("map.overlay.create", second); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(context.Background(), "map.overlay.create", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	expect(t, gotSecond)
	expectNone(t, gotFirst)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := newTestBus(t, "widget-1")
	h, got := collector()

	if err := b.Subscribe("map.overlay.remove", h); err != nil {
		t.Fatal(err)
	}
	if !b.Subscribed("map.overlay.remove") {
		t.Fatal("Subscribed() = false after Subscribe")
	}
	if err := b.Unsubscribe("map.overlay.remove"); err != nil {
		t.Fatal(err)
	}
	if b.Subscribed("map.overlay.remove") {
		t.Fatal("Subscribed() = true after Unsubscribe")
	}
	if err := b.Publish(context.Background(), "map.overlay.remove", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	expectNone(t, got)

	if err := b.Unsubscribe("never.subscribed"); err != nil {
		t.Errorf("Unsubscribe(unknown) error = %v", err)
	}
}

func TestBus_PreservesOrder(t *testing.T) {
	b := newTestBus(t, "widget-1")
	h, got := collector()
	if err := b.Subscribe("map.feature.plot", h); err != nil {
		t.Fatal(err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		if err := b.Publish(context.Background(), "map.feature.plot", []byte(fmt.Sprint(i))); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		if r := expect(t, got); r.payload != fmt.Sprint(i) {
			t.Fatalf("delivery %d = %s", i, r.payload)
		}
	}
}

func TestBus_HandlerMayPublish(t *testing.T) {
	b := newTestBus(t, "widget-1")
	h, got := collector()

	if err := b.Subscribe("map.status.view", h); err != nil {
		t.Fatal(err)
	}
	if err := b.Subscribe("map.status.request", func(string, []byte) {
		_ = b.Publish(context.Background(), "map.status.view", []byte(`{"reply":true}`))
		_ = b.Publish(context.Background(), "map.status.request.echo", nil)
	}); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(context.Background(), "map.status.request", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	if r := expect(t, got); r.payload != `{"reply":true}` {
		t.Errorf("reply = %s", r.payload)
	}
}

func TestBus_RecoversHandlerPanic(t *testing.T) {
	b := newTestBus(t, "widget-1")
	h, got := collector()

	var once sync.Once
	if err := b.Subscribe("map.feature.hide", func(sender string, payload []byte) {
		once.Do(func() { panic("boom") })
		h(sender, payload)
	}); err != nil {
		t.Fatal(err)
	}

	_ = b.Publish(context.Background(), "map.feature.hide", []byte("1"))
	_ = b.Publish(context.Background(), "map.feature.hide", []byte("2"))

	if r := expect(t, got); r.payload != "2" {
		t.Errorf("payload after panic = %s", r.payload)
	}
}

func TestNetwork_SharedBetweenWidgets(t *testing.T) {
	n := NewInMemoryNetwork(MemoryConfig{OutputBuffer: 16})
	defer n.Close()

	a, err := n.Join("widget-a")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := n.Join("widget-b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	h, got := collector()
	if err := b.Subscribe("map.overlay.show", h); err != nil {
		t.Fatal(err)
	}
	if err := a.Publish(context.Background(), "map.overlay.show", []byte(`{"overlayId":"o1"}`)); err != nil {
		t.Fatal(err)
	}

	if r := expect(t, got); ParseSender(r.sender) != "widget-a" {
		t.Errorf("sender = %s, want widget-a", r.sender)
	}

	// Closing one widget leaves the network usable for the others.
	_ = a.Close()
	c, err := n.Join("widget-c")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Publish(context.Background(), "map.overlay.show", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	expect(t, got)
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls++
	return errors.New("broker unavailable")
}

func (p *failingPublisher) Close() error { return nil }

func TestBus_CircuitBreakerOpens(t *testing.T) {
	sub := gochannel.NewGoChannel(gochannel.Config{}, nil)
	defer sub.Close()
	pub := &failingPublisher{}

	cb := NewCircuitBreaker(BreakerConfig{Name: "test-breaker", FailureThreshold: 2, Timeout: time.Minute})
	b, err := New("widget-1", pub, sub, WithCircuitBreaker(cb))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	for i := 0; i < 2; i++ {
		if err := b.Publish(context.Background(), "map.view.zoom", nil); err == nil {
			t.Fatal("expected publish error")
		}
	}
	err = b.Publish(context.Background(), "map.view.zoom", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("error = %v, want open breaker", err)
	}
	if pub.calls != 2 {
		t.Errorf("publisher called %d times, want 2", pub.calls)
	}
}
