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

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cmwapi/internal/adapter"
	"github.com/tomtom215/cmwapi/internal/bus/bustest"
	"github.com/tomtom215/cmwapi/internal/channels"
	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/overlay"
)

var _ Binder = (*adapter.Adapter)(nil)

type mockBinder struct {
	bindErrs atomic.Int32
	binds    atomic.Int32
	unbinds  atomic.Int32
}

func (m *mockBinder) Bind() error {
	m.binds.Add(1)
	if m.bindErrs.Load() > 0 {
		m.bindErrs.Add(-1)
		return errors.New("subscribe failed")
	}
	return nil
}

func (m *mockBinder) Unbind() error {
	m.unbinds.Add(1)
	return nil
}

func TestChannelBindingService_BindsUntilCanceled(t *testing.T) {
	lb := bustest.NewLoopback("widget-1")
	r := adapter.NewLogRenderer()
	a := adapter.New(cmwapi.New(lb), overlay.NewManager(r), r, adapter.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- NewChannelBindingService(a).Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !lb.Subscribed(channels.MapOverlayCreate) {
		if time.Now().After(deadline) {
			t.Fatal("channels not bound")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if lb.Subscribed(channels.MapOverlayCreate) {
		t.Error("channels still bound after shutdown")
	}
}

func TestChannelBindingService_RetriesBind(t *testing.T) {
	b := &mockBinder{}
	b.bindErrs.Store(2)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewChannelBindingService(b))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for b.binds.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("binds = %d", b.binds.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if b.unbinds.Load() != 1 {
		t.Errorf("unbinds = %d", b.unbinds.Load())
	}
	if got := NewChannelBindingService(b).String(); got != "channel-bindings" {
		t.Errorf("String() = %q", got)
	}
}
