// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

import (
	"fmt"

	"github.com/tomtom215/cmwapi/internal/channels"
)

// PlotFeature renders a feature and stores it under its overlay, creating
// the overlay (named by its id) when absent. A feature with the same id is
// replaced and its old rendering removed. When rendering fails the tree is
// left as it was.
func (m *Manager) PlotFeature(sender string, spec FeatureSpec) error {
	return m.finish("plot_feature", sender, m.plotFeature(spec))
}

// PlotFeatureURL plots a feature whose data is fetched from url.
func (m *Manager) PlotFeatureURL(sender, overlayID, featureID, name, format, url string, params map[string]any, zoom bool) error {
	return m.PlotFeature(sender, FeatureSpec{
		OverlayID: overlayID,
		FeatureID: featureID,
		Name:      name,
		Format:    format,
		Locator:   url,
		Params:    params,
		Zoom:      zoom,
	})
}

// PlotKML plots a feature from an inline KML document.
func (m *Manager) PlotKML(sender, overlayID, featureID, name, kml string, zoom bool) error {
	return m.PlotFeature(sender, FeatureSpec{
		OverlayID: overlayID,
		FeatureID: featureID,
		Name:      name,
		Format:    channels.FormatKML,
		Locator:   kml,
		Zoom:      zoom,
	})
}

// PlotMarker plots a point marker. marker holds latlon, details and iconUrl.
func (m *Manager) PlotMarker(sender, overlayID, featureID, name string, marker map[string]any, zoom bool) error {
	return m.PlotFeature(sender, FeatureSpec{
		OverlayID: overlayID,
		FeatureID: featureID,
		Name:      name,
		Format:    channels.FormatMarker,
		Marker:    marker,
		Zoom:      zoom,
	})
}

func (m *Manager) plotFeature(spec FeatureSpec) error {
	if spec.OverlayID == "" || spec.FeatureID == "" {
		return ErrEmptyID
	}
	if spec.Name == "" {
		spec.Name = spec.FeatureID
	}
	if spec.Format == "" {
		spec.Format = channels.FormatKML
	}

	params := spec.Params
	if spec.Format == channels.FormatMarker {
		params = spec.Marker
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle, err := m.renderer.RenderFeature(spec.Format, spec.Locator, params, spec.Zoom)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrRender, spec.OverlayID, spec.FeatureID, err)
	}

	node, ok := m.overlays[spec.OverlayID]
	if !ok {
		node = m.insertOverlay(spec.OverlayID, spec.OverlayID, "")
	}
	if old, exists := node.features[spec.FeatureID]; exists {
		m.unrender(old)
	}

	m.seq++
	f := &featureNode{
		Feature: Feature{
			OverlayID: spec.OverlayID,
			FeatureID: spec.FeatureID,
			Name:      spec.Name,
			Format:    spec.Format,
			Locator:   spec.Locator,
			Params:    cloneMap(spec.Params),
			Marker:    cloneMap(spec.Marker),
			Zoom:      spec.Zoom,
		},
		seq:    m.seq,
		handle: handle,
	}
	node.putFeature(f)

	if !m.ancestorsVisible(node.ID) {
		m.setVisible(f, false)
	}
	return nil
}

// UnplotFeature removes a feature and its rendering.
func (m *Manager) UnplotFeature(sender, overlayID, featureID string) error {
	return m.finish("unplot_feature", sender, m.unplotFeature(overlayID, featureID))
}

func (m *Manager) unplotFeature(overlayID, featureID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, f, err := m.lookupFeature(overlayID, featureID)
	if err != nil {
		return err
	}
	m.unrender(f)
	node.removeFeature(featureID)
	return nil
}

// HideFeature hides one feature.
func (m *Manager) HideFeature(sender, overlayID, featureID string) error {
	return m.finish("hide_feature", sender, m.setFeatureHidden(overlayID, featureID, true, false))
}

// ShowFeature shows one feature, subject to its overlays being shown. With
// zoom the view moves to it.
func (m *Manager) ShowFeature(sender, overlayID, featureID string, zoom bool) error {
	return m.finish("show_feature", sender, m.setFeatureHidden(overlayID, featureID, false, zoom))
}

func (m *Manager) setFeatureHidden(overlayID, featureID string, hidden, zoom bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, f, err := m.lookupFeature(overlayID, featureID)
	if err != nil {
		return err
	}
	f.IsHidden = hidden
	m.setVisible(f, !hidden && m.ancestorsVisible(node.ID))

	if zoom && m.focuser != nil && f.handle != nil {
		if err := m.focuser.FocusHandles([]Handle{f.handle}); err != nil {
			m.logger.Warn().Err(err).Str("feature_id", featureID).Msg("Failed to focus feature")
		}
	}
	return nil
}

// UpdateFeature renames a feature and/or moves it to another overlay, which
// is created when absent. Nil fields are left alone.
func (m *Manager) UpdateFeature(sender, overlayID, featureID string, name, newOverlayID *string) error {
	return m.finish("update_feature", sender, m.updateFeature(overlayID, featureID, name, newOverlayID))
}

func (m *Manager) updateFeature(overlayID, featureID string, name, newOverlayID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, f, err := m.lookupFeature(overlayID, featureID)
	if err != nil {
		return err
	}
	if name != nil && *name != "" {
		f.Name = *name
	}
	if newOverlayID == nil || *newOverlayID == "" || *newOverlayID == overlayID {
		return nil
	}

	target, ok := m.overlays[*newOverlayID]
	if !ok {
		target = m.insertOverlay(*newOverlayID, *newOverlayID, "")
	}
	if existing, exists := target.features[featureID]; exists {
		m.unrender(existing)
	}
	node.removeFeature(featureID)
	f.OverlayID = target.ID
	target.putFeature(f)
	m.setVisible(f, !f.IsHidden && m.ancestorsVisible(target.ID))
	return nil
}

// lookupFeature finds a feature. Caller holds m.mu.
func (m *Manager) lookupFeature(overlayID, featureID string) (*overlayNode, *featureNode, error) {
	node, ok := m.overlays[overlayID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrOverlayNotFound, overlayID)
	}
	f, ok := node.features[featureID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, overlayID, featureID)
	}
	return node, f, nil
}
