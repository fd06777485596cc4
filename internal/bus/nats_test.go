// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package bus

import (
	"context"
	"testing"
	"time"
)

func TestNATS_EmbeddedRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if !srv.IsRunning() {
		t.Fatal("server not running")
	}

	cfg := NATSConfig{URL: srv.ClientURL(), MaxReconnects: 1, CloseTimeout: time.Second}
	a, err := NewNATS("widget-a", cfg)
	if err != nil {
		t.Fatalf("NewNATS(a) error = %v", err)
	}
	defer a.Close()
	b, err := NewNATS("widget-b", cfg)
	if err != nil {
		t.Fatalf("NewNATS(b) error = %v", err)
	}
	defer b.Close()

	h, got := collector()
	if err := b.Subscribe("map.view.center.location", h); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Core NATS registers interest asynchronously; publish until it lands.
	payload := []byte(`{"location":{"lat":1,"lon":2}}`)
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := a.Publish(context.Background(), "map.view.center.location", payload); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		select {
		case r := <-got:
			if r.payload != string(payload) {
				t.Errorf("payload = %s", r.payload)
			}
			if ParseSender(r.sender) != "widget-a" {
				t.Errorf("sender = %q, want widget-a", r.sender)
			}
			return
		case <-ticker.C:
		case <-deadline:
			t.Fatal("timed out waiting for NATS delivery")
		}
	}
}
