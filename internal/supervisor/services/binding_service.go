// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package services

import (
	"context"
	"fmt"
)

// Binder is satisfied by *adapter.Adapter.
type Binder interface {
	Bind() error
	Unbind() error
}

// ChannelBindingService keeps the adapter subscribed to its command
// channels for as long as the tree runs.
type ChannelBindingService struct {
	binder Binder
}

// NewChannelBindingService wraps binder.
func NewChannelBindingService(binder Binder) *ChannelBindingService {
	return &ChannelBindingService{binder: binder}
}

// Serve implements suture.Service. A bind failure is returned so the
// supervisor retries with backoff.
func (s *ChannelBindingService) Serve(ctx context.Context) error {
	if err := s.binder.Bind(); err != nil {
		return fmt.Errorf("bind channels: %w", err)
	}
	<-ctx.Done()
	if err := s.binder.Unbind(); err != nil {
		return fmt.Errorf("unbind channels: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *ChannelBindingService) String() string {
	return "channel-bindings"
}
