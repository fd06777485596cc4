// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/cmwapi/internal/logging"
)

// BadgerConfig configures a BadgerDB-backed preference store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory; used by tests and ephemeral widgets.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// BadgerPreferences implements Preferences on BadgerDB. Keys are
// "<namespace>/<name>".
type BadgerPreferences struct {
	db    *badger.DB
	owned bool
}

var _ Preferences = (*BadgerPreferences)(nil)

// OpenBadgerPreferences opens (or creates) the database described by cfg.
// The returned store owns the database and closes it in Close.
func OpenBadgerPreferences(cfg BadgerConfig) (*BadgerPreferences, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger preferences: path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for preferences: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Preference store opened")
	return &BadgerPreferences{db: db, owned: true}, nil
}

// NewBadgerPreferences wraps an already open database. Close does not close it.
func NewBadgerPreferences(db *badger.DB) *BadgerPreferences {
	return &BadgerPreferences{db: db}
}

func preferenceKey(namespace, name string) []byte {
	return []byte(namespace + "/" + name)
}

// Set stores value under namespace/name.
func (p *BadgerPreferences) Set(ctx context.Context, namespace, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(preferenceKey(namespace, name), value); err != nil {
			return fmt.Errorf("set preference: %w", err)
		}
		return nil
	})
}

// Get returns the value under namespace/name, or ErrPreferenceMissing.
func (p *BadgerPreferences) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(preferenceKey(namespace, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPreferenceMissing
		}
		if err != nil {
			return fmt.Errorf("get preference: %w", err)
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes namespace/name. Deleting a missing key is not an error.
func (p *BadgerPreferences) Delete(ctx context.Context, namespace, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(preferenceKey(namespace, name)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete preference: %w", err)
		}
		return nil
	})
}

// Close closes the database if the store opened it.
func (p *BadgerPreferences) Close() error {
	if p.owned && p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Ping reports whether the database is still open.
func (p *BadgerPreferences) Ping(context.Context) error {
	if p.db == nil || p.db.IsClosed() {
		return errors.New("badger preferences: database closed")
	}
	return nil
}
