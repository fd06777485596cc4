// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func openTestPrefs(t *testing.T) *BadgerPreferences {
	t.Helper()
	prefs, err := OpenBadgerPreferences(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerPreferences() error = %v", err)
	}
	t.Cleanup(func() { _ = prefs.Close() })
	return prefs
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for persistence result")
		return nil
	}
}

type recordingReporter struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingReporter) SendInternal(_ context.Context, sender, msg string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sender+": "+msg+": "+cause.Error())
	return nil
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type failingPrefs struct{ err error }

func (p failingPrefs) Set(context.Context, string, string, []byte) error { return p.err }
func (p failingPrefs) Get(context.Context, string, string) ([]byte, error) {
	return nil, p.err
}
func (p failingPrefs) Delete(context.Context, string, string) error { return p.err }

// slowPrefs stores values in memory and delays writes of single-overlay
// snapshots, so an older archive finishes after a newer one.
type slowPrefs struct {
	mu    sync.Mutex
	value []byte
	set   bool
}

func (p *slowPrefs) Set(_ context.Context, _, _ string, value []byte) error {
	var snap snapshot
	if err := json.Unmarshal(value, &snap); err == nil && len(snap) == 1 {
		time.Sleep(100 * time.Millisecond)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value, p.set = value, true
	return nil
}

func (p *slowPrefs) Get(context.Context, string, string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		return nil, ErrPreferenceMissing
	}
	return p.value, nil
}

func (p *slowPrefs) Delete(context.Context, string, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value, p.set = nil, false
	return nil
}

func (p *slowPrefs) overlays(t *testing.T) int {
	t.Helper()
	raw, err := p.Get(context.Background(), "", "")
	if errors.Is(err, ErrPreferenceMissing) {
		return 0
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("stored snapshot: %v", err)
	}
	return len(snap)
}

func TestArchiveRetrieve_RoundTrip(t *testing.T) {
	ctx := context.Background()
	prefs := openTestPrefs(t)

	src := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""))
	_ = src.CreateOverlay("w", "root", "Root", "")
	_ = src.CreateOverlay("w", "child", "Child", "root")
	_ = src.PlotFeatureURL("w", "child", "roads", "Roads", "kml-url", "https://example.com/roads.kml", nil, true)
	_ = src.PlotFeatureURL("w", "child", "wms", "Imagery", "wms-url", "https://example.com/wms", map[string]any{"layers": "0"}, false)
	_ = src.PlotMarker("w", "root", "hq", "HQ", map[string]any{"latlon": map[string]any{"lat": 1.0, "lon": 2.0}}, false)
	_ = src.HideFeature("w", "child", "wms")
	_ = src.HideOverlay("w", "root")

	if err := wait(t, src.ArchiveState(ctx)); err != nil {
		t.Fatalf("ArchiveState() error = %v", err)
	}

	r := newFakeRenderer()
	dst := NewManager(r, WithPreferences(prefs, "", ""))
	if err := wait(t, dst.RetrieveState(ctx)); err != nil {
		t.Fatalf("RetrieveState() error = %v", err)
	}

	root, ok := dst.Overlay("root")
	if !ok || root.Name != "Root" || !root.IsHidden {
		t.Errorf("root = %+v", root)
	}
	child, _ := dst.Overlay("child")
	if child.ParentID != "root" || child.Name != "Child" {
		t.Errorf("child = %+v", child)
	}

	roads, _ := dst.Feature("child", "roads")
	if roads.Format != "kml" || roads.Locator != "https://example.com/roads.kml" || roads.Zoom {
		t.Errorf("roads = %+v", roads)
	}
	wms, _ := dst.Feature("child", "wms")
	if wms.Format != "wms" || !wms.IsHidden || wms.Params["layers"] != "0" {
		t.Errorf("wms = %+v", wms)
	}
	hq, _ := dst.Feature("root", "hq")
	if hq.Format != "marker" || hq.Marker == nil {
		t.Errorf("hq = %+v", hq)
	}

	if got := ids(dst.GetOverlayTree()); !equalIDs(got, "root") {
		t.Errorf("roots = %v", got)
	}
	h, _ := dst.FeatureHandle("child", "roads")
	if r.isVisible(h) {
		t.Error("feature under hidden root is visible after restore")
	}
}

func TestArchiveState_NullsHandles(t *testing.T) {
	ctx := context.Background()
	prefs := openTestPrefs(t)
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "ns", "state"))
	_ = m.PlotKML("w", "o", "f", "", "<kml/>", false)

	if err := wait(t, m.ArchiveState(ctx)); err != nil {
		t.Fatal(err)
	}
	raw, err := prefs.Get(ctx, "ns", "state")
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	f := decoded["o"]["features"].(map[string]any)["f"].(map[string]any)
	if h, ok := f["renderedHandle"]; !ok || h != nil {
		t.Errorf("renderedHandle = %v, %v", h, ok)
	}
	if decoded["o"]["parentId"] != nil {
		t.Errorf("root parentId = %v", decoded["o"]["parentId"])
	}

	// The live tree keeps its handle.
	if _, ok := m.FeatureHandle("o", "f"); !ok {
		t.Error("live handle lost after archive")
	}
}

func TestRetrieveState_Missing(t *testing.T) {
	m := NewManager(newFakeRenderer(), WithPreferences(openTestPrefs(t), "", ""))
	if err := wait(t, m.RetrieveState(context.Background())); err != nil {
		t.Errorf("missing snapshot error = %v", err)
	}
	if o, f := m.Counts(); o != 0 || f != 0 {
		t.Errorf("counts = %d, %d", o, f)
	}
}

func TestRetrieveState_MergesOntoLiveTree(t *testing.T) {
	ctx := context.Background()
	prefs := openTestPrefs(t)

	src := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""))
	_ = src.CreateOverlay("w", "saved", "", "")
	if err := wait(t, src.ArchiveState(ctx)); err != nil {
		t.Fatal(err)
	}

	dst := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""))
	_ = dst.CreateOverlay("w", "live", "", "")
	if err := wait(t, dst.RetrieveState(ctx)); err != nil {
		t.Fatal(err)
	}
	if got := ids(dst.GetOverlayTree()); !equalIDs(got, "live", "saved") {
		t.Errorf("roots = %v", got)
	}
}

func TestRetrieveState_Corrupt(t *testing.T) {
	ctx := context.Background()
	prefs := openTestPrefs(t)
	rep := &recordingReporter{}
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""), WithReporter(rep, "widget-1"))

	ns, name := m.Namespace()
	if err := prefs.Set(ctx, ns, name, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := wait(t, m.RetrieveState(ctx)); err == nil {
		t.Fatal("expected decode error")
	}
	if rep.count() != 1 {
		t.Errorf("reports = %d, want 1", rep.count())
	}
}

func TestPersistence_FailuresReported(t *testing.T) {
	ctx := context.Background()
	rep := &recordingReporter{}
	m := NewManager(newFakeRenderer(),
		WithPreferences(failingPrefs{err: errors.New("store offline")}, "", ""),
		WithReporter(rep, "widget-1"))

	if err := wait(t, m.ArchiveState(ctx)); err == nil {
		t.Error("archive: expected error")
	}
	if err := wait(t, m.RetrieveState(ctx)); err == nil {
		t.Error("retrieve: expected error")
	}
	if err := wait(t, m.DeleteState(ctx)); err == nil {
		t.Error("delete: expected error")
	}

	if rep.count() != 3 {
		t.Fatalf("reports = %d, want 3", rep.count())
	}
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if !strings.HasPrefix(rep.msgs[0], "widget-1: Unable to archive state: store offline") {
		t.Errorf("first report = %q", rep.msgs[0])
	}
}

func TestPersistence_NoStore(t *testing.T) {
	m := NewManager(newFakeRenderer())
	ctx := context.Background()
	for name, errc := range map[string]<-chan error{
		"archive":  m.ArchiveState(ctx),
		"retrieve": m.RetrieveState(ctx),
		"delete":   m.DeleteState(ctx),
	} {
		if err := wait(t, errc); !errors.Is(err, ErrNoPreferences) {
			t.Errorf("%s error = %v", name, err)
		}
	}
}

func TestDeleteState(t *testing.T) {
	ctx := context.Background()
	prefs := openTestPrefs(t)
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""))
	_ = m.CreateOverlay("w", "a", "", "")

	if err := wait(t, m.ArchiveState(ctx)); err != nil {
		t.Fatal(err)
	}
	if err := wait(t, m.DeleteState(ctx)); err != nil {
		t.Fatal(err)
	}
	ns, name := m.Namespace()
	if _, err := prefs.Get(ctx, ns, name); !errors.Is(err, ErrPreferenceMissing) {
		t.Errorf("Get after delete error = %v", err)
	}
	if _, ok := m.Overlay("a"); !ok {
		t.Error("DeleteState touched the live tree")
	}
	if err := wait(t, m.DeleteState(ctx)); err != nil {
		t.Errorf("second delete error = %v", err)
	}
}

func TestAutoArchive(t *testing.T) {
	ctx := context.Background()
	prefs := openTestPrefs(t)
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""), WithAutoArchive(ctx))

	_ = m.CreateOverlay("w", "auto", "", "")

	ns, name := m.Namespace()
	deadline := time.Now().Add(5 * time.Second)
	for {
		raw, err := prefs.Get(ctx, ns, name)
		if err == nil && strings.Contains(string(raw), `"auto"`) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot not archived: %s, %v", raw, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestArchiveState_NewestSnapshotWins(t *testing.T) {
	ctx := context.Background()
	prefs := &slowPrefs{}
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""))

	_ = m.CreateOverlay("w", "a", "", "")
	first := m.ArchiveState(ctx)
	_ = m.CreateOverlay("w", "b", "", "")
	second := m.ArchiveState(ctx)

	if err := wait(t, first); err != nil {
		t.Fatal(err)
	}
	if err := wait(t, second); err != nil {
		t.Fatal(err)
	}
	if got := prefs.overlays(t); got != 2 {
		t.Errorf("persisted overlays = %d, want 2", got)
	}
}

func TestAutoArchive_KeepsLatestTree(t *testing.T) {
	ctx := context.Background()
	prefs := &slowPrefs{}
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""), WithAutoArchive(ctx))

	_ = m.CreateOverlay("w", "a", "", "")
	_ = m.CreateOverlay("w", "b", "", "")

	deadline := time.Now().Add(5 * time.Second)
	for prefs.overlays(t) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("persisted overlays = %d, want 2", prefs.overlays(t))
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The delayed single-overlay write must not land afterwards.
	time.Sleep(200 * time.Millisecond)
	if live, _ := m.Counts(); prefs.overlays(t) != live {
		t.Errorf("live overlays = %d, persisted overlays = %d", live, prefs.overlays(t))
	}
}

func TestDeleteState_DropsPendingArchive(t *testing.T) {
	ctx := context.Background()
	prefs := &slowPrefs{}
	m := NewManager(newFakeRenderer(), WithPreferences(prefs, "", ""))

	_ = m.CreateOverlay("w", "a", "", "")
	archived := m.ArchiveState(ctx)
	deleted := m.DeleteState(ctx)

	if err := wait(t, archived); err != nil {
		t.Fatal(err)
	}
	if err := wait(t, deleted); err != nil {
		t.Fatal(err)
	}
	if got := prefs.overlays(t); got != 0 {
		t.Errorf("persisted overlays after delete = %d, want 0", got)
	}

	// A snapshot taken after the delete is written again.
	if err := wait(t, m.ArchiveState(ctx)); err != nil {
		t.Fatal(err)
	}
	if got := prefs.overlays(t); got != 1 {
		t.Errorf("persisted overlays = %d, want 1", got)
	}
}

func TestBadgerPreferences_Context(t *testing.T) {
	prefs := openTestPrefs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := prefs.Set(ctx, "ns", "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Errorf("Set error = %v", err)
	}
	if _, err := prefs.Get(ctx, "ns", "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get error = %v", err)
	}
	if err := prefs.Delete(ctx, "ns", "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete error = %v", err)
	}
}

func TestOpenBadgerPreferences_RequiresPath(t *testing.T) {
	if _, err := OpenBadgerPreferences(BadgerConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestBadgerPreferences_Ping(t *testing.T) {
	prefs, err := OpenBadgerPreferences(BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if err := prefs.Ping(context.Background()); err != nil {
		t.Errorf("Ping() open = %v", err)
	}
	_ = prefs.Close()
	if err := prefs.Ping(context.Background()); err == nil {
		t.Error("Ping() after Close should fail")
	}
}
