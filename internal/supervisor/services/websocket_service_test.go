// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/cmwapi/internal/websocket"
)

var _ ContextHub = (*websocket.Hub)(nil)

type mockContextHub struct {
	runErr error
	runs   atomic.Int32
}

func (m *mockContextHub) RunWithContext(ctx context.Context) error {
	m.runs.Add(1)
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService_Serve(t *testing.T) {
	t.Run("delegates until canceled", func(t *testing.T) {
		hub := &mockContextHub{}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := NewWebSocketHubService(hub).Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) || hub.runs.Load() != 1 {
			t.Errorf("err = %v, runs = %d", err, hub.runs.Load())
		}
	})

	t.Run("propagates hub error", func(t *testing.T) {
		hubErr := errors.New("hub crashed")
		err := NewWebSocketHubService(&mockContextHub{runErr: hubErr}).Serve(context.Background())
		if !errors.Is(err, hubErr) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("runs a real hub", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- NewWebSocketHubService(websocket.NewHub()).Serve(ctx) }()
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("err = %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("hub did not stop")
		}
	})

	if got := NewWebSocketHubService(&mockContextHub{}).String(); got != "websocket-hub" {
		t.Errorf("String() = %q", got)
	}
}
