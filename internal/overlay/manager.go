// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/metrics"
)

// Default preference location of the archived tree.
const (
	DefaultNamespace = "cmwapi.map"
	DefaultName      = "overlayState"
)

// Notifier receives user-facing messages such as a rejected reparent.
type Notifier func(msg string)

// Manager owns one widget's overlay/feature tree. All mutations are
// serialized; tree-change observers run after the lock is released.
type Manager struct {
	renderer Renderer
	focuser  Focuser
	logger   zerolog.Logger

	notifyError Notifier
	notifyInfo  Notifier

	prefs     Preferences
	namespace string
	name      string
	reporter  Reporter
	identity  string
	restoring atomic.Bool

	// archiveMu serializes preference writes. snapshotGen numbers
	// snapshots in tree order; writtenGen is the newest one stored.
	archiveMu   sync.Mutex
	snapshotGen uint64
	writtenGen  uint64

	mu        sync.Mutex
	overlays  map[string]*overlayNode
	order     []string
	seq       uint64
	observers []func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithErrorNotifier sets the notifier for failed operations.
func WithErrorNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifyError = n }
}

// WithInfoNotifier sets the notifier for informational messages.
func WithInfoNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifyInfo = n }
}

// WithFocuser lets ShowFeature move the view when zoom is requested.
func WithFocuser(f Focuser) Option {
	return func(m *Manager) { m.focuser = f }
}

// WithPreferences sets the store used by ArchiveState and RetrieveState.
// Empty namespace or name fall back to the defaults.
func WithPreferences(p Preferences, namespace, name string) Option {
	return func(m *Manager) {
		m.prefs = p
		if namespace != "" {
			m.namespace = namespace
		}
		if name != "" {
			m.name = name
		}
	}
}

// WithReporter sets where persistence failures are reported, and the
// identity they are reported as.
func WithReporter(r Reporter, identity string) Option {
	return func(m *Manager) {
		m.reporter = r
		m.identity = identity
	}
}

// NewManager returns an empty tree drawing through renderer.
func NewManager(renderer Renderer, opts ...Option) *Manager {
	m := &Manager{
		renderer:    renderer,
		logger:      logging.WithComponent("overlay"),
		notifyError: func(string) {},
		notifyInfo:  func(string) {},
		namespace:   DefaultNamespace,
		name:        DefaultName,
		overlays:    make(map[string]*overlayNode),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BindTreeChangeHandler registers fn to run after every mutation. Nil is ignored.
func (m *Manager) BindTreeChangeHandler(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// TreeChanged calls every observer in registration order.
func (m *Manager) TreeChanged() {
	m.mu.Lock()
	observers := make([]func(), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// finish records the mutation, reports a failure or fires the observers.
func (m *Manager) finish(op, sender string, err error) error {
	overlays, features := m.Counts()
	metrics.RecordTreeMutation(op, err, overlays, features)

	if err != nil {
		m.logger.Debug().Err(err).Str("operation", op).Str("sender", sender).Msg("Tree mutation rejected")
		m.notifyError(err.Error())
		return err
	}
	m.logger.Trace().Str("operation", op).Str("sender", sender).Msg("Tree mutated")
	m.TreeChanged()
	return nil
}

// CreateOverlay adds an overlay, or renames and reparents an existing one.
// An empty name defaults to id. An empty parentID leaves an existing
// overlay's parent alone. A parent that does not exist yet is recorded and
// resolved once it appears.
func (m *Manager) CreateOverlay(sender, id, name, parentID string) error {
	if err := m.finish("create_overlay", sender, m.createOverlay(id, name, parentID)); err != nil {
		return err
	}
	if parentID != "" {
		if _, ok := m.Overlay(parentID); !ok {
			m.notifyInfo(fmt.Sprintf("Overlay %s is waiting for parent %s", id, parentID))
		}
	}
	return nil
}

func (m *Manager) createOverlay(id, name, parentID string) error {
	if id == "" {
		return ErrEmptyID
	}
	if name == "" {
		name = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if parentID != "" && m.wouldCycle(id, parentID) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, id, parentID)
	}

	if node, ok := m.overlays[id]; ok {
		node.Name = name
		if parentID != "" && parentID != node.ParentID {
			node.ParentID = parentID
			m.applyVisibility(id)
		}
		return nil
	}

	m.insertOverlay(id, name, parentID)
	return nil
}

func (m *Manager) insertOverlay(id, name, parentID string) *overlayNode {
	m.seq++
	node := &overlayNode{
		Overlay:  Overlay{ID: id, Name: name, ParentID: parentID},
		seq:      m.seq,
		features: make(map[string]*featureNode),
	}
	m.overlays[id] = node
	m.order = append(m.order, id)
	return node
}

// UpdateOverlay changes the name and/or parent of an overlay. Nil fields are
// left alone; an empty parentID moves the overlay to the root.
func (m *Manager) UpdateOverlay(sender, id string, name, parentID *string) error {
	return m.finish("update_overlay", sender, m.updateOverlay(id, name, parentID))
}

func (m *Manager) updateOverlay(id string, name, parentID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.overlays[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOverlayNotFound, id)
	}
	if parentID != nil && *parentID != "" && m.wouldCycle(id, *parentID) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, id, *parentID)
	}

	if name != nil && *name != "" {
		node.Name = *name
	}
	if parentID != nil && *parentID != node.ParentID {
		node.ParentID = *parentID
		m.applyVisibility(id)
	}
	return nil
}

// RemoveOverlay deletes an overlay and its features. Child overlays move up
// to the removed overlay's parent.
func (m *Manager) RemoveOverlay(sender, id string) error {
	return m.finish("remove_overlay", sender, m.removeOverlay(id))
}

func (m *Manager) removeOverlay(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.overlays[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOverlayNotFound, id)
	}

	var promoted []string
	for _, oid := range m.order {
		if other := m.overlays[oid]; other.ParentID == id {
			other.ParentID = node.ParentID
			promoted = append(promoted, oid)
		}
	}
	for _, fid := range node.featureOrder {
		m.unrender(node.features[fid])
	}

	delete(m.overlays, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, oid := range promoted {
		m.applyVisibility(oid)
	}
	return nil
}

// HideOverlay hides an overlay and everything under it.
func (m *Manager) HideOverlay(sender, id string) error {
	return m.finish("hide_overlay", sender, m.setOverlayHidden(id, true))
}

// ShowOverlay shows an overlay. Features under it become visible unless they
// or another ancestor are hidden.
func (m *Manager) ShowOverlay(sender, id string) error {
	return m.finish("show_overlay", sender, m.setOverlayHidden(id, false))
}

func (m *Manager) setOverlayHidden(id string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.overlays[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOverlayNotFound, id)
	}
	node.IsHidden = hidden
	m.applyVisibility(id)
	return nil
}

// wouldCycle reports whether making parentID the parent of id closes a loop.
// Caller holds m.mu.
func (m *Manager) wouldCycle(id, parentID string) bool {
	cur := parentID
	for steps := 0; cur != "" && steps <= len(m.overlays); steps++ {
		if cur == id {
			return true
		}
		node, ok := m.overlays[cur]
		if !ok {
			return false
		}
		cur = node.ParentID
	}
	return cur == id
}

// ancestorsVisible reports whether overlay id and all its resolved
// ancestors are shown. Caller holds m.mu.
func (m *Manager) ancestorsVisible(id string) bool {
	cur := id
	for steps := 0; cur != "" && steps <= len(m.overlays); steps++ {
		node, ok := m.overlays[cur]
		if !ok {
			return true
		}
		if node.IsHidden {
			return false
		}
		cur = node.ParentID
	}
	return true
}

// subtree returns id and every overlay below it, breadth first.
// Caller holds m.mu.
func (m *Manager) subtree(id string) []*overlayNode {
	root, ok := m.overlays[id]
	if !ok {
		return nil
	}
	children := m.childIndex()

	out := []*overlayNode{root}
	for i := 0; i < len(out); i++ {
		for _, cid := range children[out[i].ID] {
			out = append(out, m.overlays[cid])
		}
	}
	return out
}

// childIndex maps each overlay id to its children in insertion order.
// Caller holds m.mu.
func (m *Manager) childIndex() map[string][]string {
	children := make(map[string][]string, len(m.overlays))
	for _, oid := range m.order {
		if p := m.overlays[oid].ParentID; p != "" {
			children[p] = append(children[p], oid)
		}
	}
	return children
}

// applyVisibility pushes effective visibility for every feature under id to
// the renderer. Caller holds m.mu.
func (m *Manager) applyVisibility(id string) {
	for _, node := range m.subtree(id) {
		shown := m.ancestorsVisible(node.ID)
		for _, fid := range node.featureOrder {
			f := node.features[fid]
			m.setVisible(f, shown && !f.IsHidden)
		}
	}
}

func (m *Manager) setVisible(f *featureNode, visible bool) {
	if f.handle == nil {
		return
	}
	if err := m.renderer.SetVisible(f.handle, visible); err != nil {
		m.logger.Warn().Err(err).
			Str("overlay_id", f.OverlayID).
			Str("feature_id", f.FeatureID).
			Msg("Failed to set feature visibility")
	}
}

func (m *Manager) unrender(f *featureNode) {
	if f == nil || f.handle == nil {
		return
	}
	if err := m.renderer.Unrender(f.handle); err != nil {
		m.logger.Warn().Err(err).
			Str("overlay_id", f.OverlayID).
			Str("feature_id", f.FeatureID).
			Msg("Failed to unrender feature")
	}
	f.handle = nil
}

// Namespace returns the preference namespace and name of the archived tree.
func (m *Manager) Namespace() (namespace, name string) {
	return m.namespace, m.name
}

func (m *Manager) report(ctx context.Context, msg string, err error) {
	m.logger.Error().Err(err).Msg(msg)
	if m.reporter == nil {
		return
	}
	if rerr := m.reporter.SendInternal(ctx, m.identity, msg, err); rerr != nil {
		m.logger.Error().Err(rerr).Msg("Failed to report internal error")
	}
}
