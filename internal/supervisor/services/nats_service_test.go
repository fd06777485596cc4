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

	"github.com/tomtom215/cmwapi/internal/bus"
)

var _ EmbeddedServer = (*bus.EmbeddedServer)(nil)

type mockEmbeddedServer struct {
	running     atomic.Bool
	shutdowns   atomic.Int32
	shutdownErr error
}

func newMockEmbeddedServer() *mockEmbeddedServer {
	s := &mockEmbeddedServer{}
	s.running.Store(true)
	return s
}

func (m *mockEmbeddedServer) IsRunning() bool { return m.running.Load() }

func (m *mockEmbeddedServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	m.running.Store(false)
	return m.shutdownErr
}

func fastNATSService(s EmbeddedServer) *EmbeddedNATSService {
	svc := NewEmbeddedNATSService(s, time.Second)
	svc.checkInterval = 5 * time.Millisecond
	return svc
}

func TestEmbeddedNATSService_ShutsDownOnCancel(t *testing.T) {
	server := newMockEmbeddedServer()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- fastNATSService(server).Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	if server.shutdowns.Load() != 1 {
		t.Errorf("shutdowns = %d", server.shutdowns.Load())
	}
}

func TestEmbeddedNATSService_ServerDies(t *testing.T) {
	server := newMockEmbeddedServer()
	errCh := make(chan error, 1)
	go func() { errCh <- fastNATSService(server).Serve(context.Background()) }()

	server.running.Store(false)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrServerStopped) || !errors.Is(err, suture.ErrTerminateSupervisorTree) {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not notice the stopped server")
	}
}

func TestEmbeddedNATSService_ShutdownError(t *testing.T) {
	server := newMockEmbeddedServer()
	server.shutdownErr = errors.New("lame duck timeout")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fastNATSService(server).Serve(ctx); !errors.Is(err, server.shutdownErr) {
		t.Errorf("err = %v", err)
	}
}

func TestEmbeddedNATSService_RealServer(t *testing.T) {
	server, err := bus.NewEmbeddedServer(bus.ServerConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- fastNATSService(server).Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-errCh

	if server.IsRunning() {
		t.Error("server still running after tree shutdown")
	}
}
