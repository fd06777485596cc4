// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cmwapi/internal/channels"
	"github.com/tomtom215/cmwapi/internal/metrics"
)

// Preferences is a namespaced key/value store for widget state.
// Get returns ErrPreferenceMissing when nothing is stored.
type Preferences interface {
	Set(ctx context.Context, namespace, name string, value []byte) error
	Get(ctx context.Context, namespace, name string) ([]byte, error)
	Delete(ctx context.Context, namespace, name string) error
}

// Reporter publishes internal errors. *cmwapi.ErrorChannel satisfies it.
type Reporter interface {
	SendInternal(ctx context.Context, sender, msg string, cause error) error
}

// Persisted snapshot: overlay id -> overlay record. Rendered handles are
// written as null.
type snapshot map[string]*snapshotOverlay

type snapshotOverlay struct {
	ID       string                      `json:"id"`
	Name     string                      `json:"name"`
	ParentID *string                     `json:"parentId"`
	IsHidden bool                        `json:"isHidden"`
	Seq      uint64                      `json:"seq"`
	Features map[string]*snapshotFeature `json:"features"`
}

type snapshotFeature struct {
	FeatureID      string         `json:"featureId"`
	Name           string         `json:"name"`
	Format         string         `json:"format"`
	Feature        string         `json:"feature,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	Marker         map[string]any `json:"marker,omitempty"`
	Zoom           bool           `json:"zoom"`
	IsHidden       bool           `json:"isHidden"`
	Seq            uint64         `json:"seq"`
	RenderedHandle any            `json:"renderedHandle"`
}

// takeSnapshot copies the tree without handles and returns its generation.
func (m *Manager) takeSnapshot() (snapshot, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshotGen++
	gen := m.snapshotGen

	snap := make(snapshot, len(m.overlays))
	for _, oid := range m.order {
		node := m.overlays[oid]
		rec := &snapshotOverlay{
			ID:       node.ID,
			Name:     node.Name,
			IsHidden: node.IsHidden,
			Seq:      node.seq,
			Features: make(map[string]*snapshotFeature, len(node.features)),
		}
		if node.ParentID != "" {
			parent := node.ParentID
			rec.ParentID = &parent
		}
		for _, fid := range node.featureOrder {
			f := node.features[fid]
			rec.Features[fid] = &snapshotFeature{
				FeatureID: f.FeatureID,
				Name:      f.Name,
				Format:    f.Format,
				Feature:   f.Locator,
				Params:    cloneMap(f.Params),
				Marker:    cloneMap(f.Marker),
				Zoom:      f.Zoom,
				IsHidden:  f.IsHidden,
				Seq:       f.seq,
			}
		}
		snap[oid] = rec
	}
	return snap, gen
}

// currentGen returns the generation of the newest snapshot taken.
func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotGen
}

// writeSnapshot stores data unless a newer snapshot has already been
// written or deleted. A superseded write is skipped and reports success.
func (m *Manager) writeSnapshot(ctx context.Context, gen uint64, data []byte) (bool, error) {
	m.archiveMu.Lock()
	defer m.archiveMu.Unlock()

	if gen <= m.writtenGen {
		return false, nil
	}
	if err := m.prefs.Set(ctx, m.namespace, m.name, data); err != nil {
		return false, err
	}
	m.writtenGen = gen
	return true, nil
}

func result(errc chan error, err error) <-chan error {
	errc <- err
	close(errc)
	return errc
}

// ArchiveState writes the current tree to the preference store. The
// snapshot is taken before ArchiveState returns; the write completes in the
// background and its outcome is delivered once on the returned channel.
// Writes land in snapshot order: a snapshot older than the stored one is
// dropped. Failures are also reported through the Reporter.
func (m *Manager) ArchiveState(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	if m.prefs == nil {
		return result(errc, ErrNoPreferences)
	}

	snap, gen := m.takeSnapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		err = fmt.Errorf("encode overlay state: %w", err)
		metrics.RecordStateOperation("archive", err)
		m.report(ctx, "Unable to archive state", err)
		return result(errc, err)
	}

	go func() {
		defer close(errc)
		written, err := m.writeSnapshot(ctx, gen, data)
		metrics.RecordStateOperation("archive", err)
		if err != nil {
			m.report(ctx, "Unable to archive state", err)
			errc <- fmt.Errorf("archive overlay state: %w", err)
			return
		}
		if !written {
			m.logger.Debug().Uint64("generation", gen).Msg("Overlay state superseded, not archived")
			errc <- nil
			return
		}
		metrics.StateSnapshotBytes.Set(float64(len(data)))
		m.logger.Debug().Int("overlays", len(snap)).Int("bytes", len(data)).Msg("Overlay state archived")
		errc <- nil
	}()
	return errc
}

// RetrieveState reads the archived tree and replays it onto the live tree:
// overlays are created with their parent links, features plotted with
// zoom off and legacy url formats mapped to their base format, then hidden
// flags applied. A missing snapshot is not an error. Replay failures of
// single records are joined into the result.
func (m *Manager) RetrieveState(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	if m.prefs == nil {
		return result(errc, ErrNoPreferences)
	}

	go func() {
		defer close(errc)

		data, err := m.prefs.Get(ctx, m.namespace, m.name)
		if errors.Is(err, ErrPreferenceMissing) {
			metrics.RecordStateOperation("retrieve", nil)
			errc <- nil
			return
		}
		if err != nil {
			metrics.RecordStateOperation("retrieve", err)
			m.report(ctx, "Error in getting preference.", err)
			errc <- fmt.Errorf("retrieve overlay state: %w", err)
			return
		}

		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			err = fmt.Errorf("decode overlay state: %w", err)
			metrics.RecordStateOperation("retrieve", err)
			m.report(ctx, "Unable to restore state", err)
			errc <- err
			return
		}

		err = m.replay(snap)
		metrics.RecordStateOperation("retrieve", err)
		errc <- err
	}()
	return errc
}

// DeleteState removes the archived tree. The live tree is untouched.
// Archives of snapshots taken before the call are not written afterwards.
func (m *Manager) DeleteState(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	if m.prefs == nil {
		return result(errc, ErrNoPreferences)
	}

	gen := m.currentGen()
	go func() {
		defer close(errc)
		m.archiveMu.Lock()
		err := m.prefs.Delete(ctx, m.namespace, m.name)
		if err == nil && gen > m.writtenGen {
			m.writtenGen = gen
		}
		m.archiveMu.Unlock()
		metrics.RecordStateOperation("delete", err)
		if err != nil {
			m.report(ctx, "Unable to delete state", err)
			errc <- fmt.Errorf("delete overlay state: %w", err)
			return
		}
		errc <- nil
	}()
	return errc
}

func (m *Manager) replay(snap snapshot) error {
	m.restoring.Store(true)
	defer func() {
		m.restoring.Store(false)
		m.TreeChanged()
	}()

	overlays := make([]*snapshotOverlay, 0, len(snap))
	for id, rec := range snap {
		if rec == nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = id
		}
		overlays = append(overlays, rec)
	}
	sort.Slice(overlays, func(i, j int) bool {
		if overlays[i].Seq != overlays[j].Seq {
			return overlays[i].Seq < overlays[j].Seq
		}
		return overlays[i].ID < overlays[j].ID
	})

	sender := m.identity
	var errs []error
	for _, rec := range overlays {
		parent := ""
		if rec.ParentID != nil {
			parent = *rec.ParentID
		}
		if err := m.CreateOverlay(sender, rec.ID, rec.Name, parent); err != nil {
			errs = append(errs, err)
		}
	}

	for _, rec := range overlays {
		features := make([]*snapshotFeature, 0, len(rec.Features))
		for fid, f := range rec.Features {
			if f == nil {
				continue
			}
			if f.FeatureID == "" {
				f.FeatureID = fid
			}
			features = append(features, f)
		}
		sort.Slice(features, func(i, j int) bool {
			if features[i].Seq != features[j].Seq {
				return features[i].Seq < features[j].Seq
			}
			return features[i].FeatureID < features[j].FeatureID
		})

		for _, f := range features {
			var err error
			switch format := channels.BaseFormat(f.Format); format {
			case channels.FormatMarker:
				err = m.PlotMarker(sender, rec.ID, f.FeatureID, f.Name, f.Marker, false)
			default:
				err = m.PlotFeatureURL(sender, rec.ID, f.FeatureID, f.Name, format, f.Feature, f.Params, false)
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if f.IsHidden {
				if err := m.HideFeature(sender, rec.ID, f.FeatureID); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	for _, rec := range overlays {
		if rec.IsHidden {
			if err := m.HideOverlay(sender, rec.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WithAutoArchive archives the tree after every change. Changes made while
// a snapshot is being restored are archived once, when the restore ends.
func WithAutoArchive(ctx context.Context) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, func() {
			if m.restoring.Load() {
				return
			}
			m.ArchiveState(ctx)
		})
	}
}
