// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package bus

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/cmwapi/internal/logging"
)

// MemoryConfig configures the in-process Watermill gochannel pub/sub.
type MemoryConfig struct {
	// OutputBuffer is the per-subscription channel buffer.
	OutputBuffer int64
}

func newGoChannel(cfg MemoryConfig) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.OutputBuffer,
		// Publish returns once every subscriber has read the message, which
		// keeps per-channel delivery order. Bus readers ack on receipt.
		BlockPublishUntilSubscriberAck: true,
	}, logging.NewWatermillAdapter())
}

// NewInMemory creates a Bus backed by its own gochannel pub/sub. The bus
// receives its own publishes, like a widget on a shared host bus.
func NewInMemory(identity string, cfg MemoryConfig, opts ...Option) (*Bus, error) {
	ps := newGoChannel(cfg)
	b, err := New(identity, ps, ps, append(opts, withCloser(ps.Close))...)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}
	return b, nil
}

// Network is one gochannel pub/sub shared by several widgets in a process.
type Network struct {
	pubsub *gochannel.GoChannel
}

// NewInMemoryNetwork creates a shared in-process bus.
func NewInMemoryNetwork(cfg MemoryConfig) *Network {
	return &Network{pubsub: newGoChannel(cfg)}
}

// Join returns a Bus on the network publishing as identity. Closing the
// returned Bus leaves the network running.
func (n *Network) Join(identity string, opts ...Option) (*Bus, error) {
	return New(identity, n.pubsub, n.pubsub, opts...)
}

// Close shuts the network down.
func (n *Network) Close() error {
	return n.pubsub.Close()
}
