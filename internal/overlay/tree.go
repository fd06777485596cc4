// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

// GetOverlayTree returns a fresh forest of the current tree. Roots are
// overlays with no parent or whose parent does not exist (yet). Siblings
// keep insertion order; an overlay lists child overlays before features.
func (m *Manager) GetOverlayTree() []*TreeNode {
	m.mu.Lock()
	defer m.mu.Unlock()

	children := m.childIndex()
	var roots []*TreeNode
	for _, oid := range m.order {
		node := m.overlays[oid]
		if _, resolved := m.overlays[node.ParentID]; node.ParentID == "" || !resolved {
			roots = append(roots, m.resolve(node, children))
		}
	}
	return roots
}

func (m *Manager) resolve(node *overlayNode, children map[string][]string) *TreeNode {
	out := &TreeNode{
		Type:     NodeOverlay,
		ID:       node.ID,
		Name:     node.Name,
		IsHidden: node.IsHidden,
		Children: make([]*TreeNode, 0, len(children[node.ID])+len(node.featureOrder)),
	}
	for _, cid := range children[node.ID] {
		out.Children = append(out.Children, m.resolve(m.overlays[cid], children))
	}
	for _, fid := range node.featureOrder {
		f := node.features[fid]
		out.Children = append(out.Children, &TreeNode{
			Type:      NodeFeature,
			ID:        f.FeatureID,
			Name:      f.Name,
			IsHidden:  f.IsHidden,
			Format:    f.Format,
			Zoom:      f.Zoom,
			OverlayID: f.OverlayID,
		})
	}
	return out
}

// Overlay returns a copy of overlay id.
func (m *Manager) Overlay(id string) (Overlay, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.overlays[id]
	if !ok {
		return Overlay{}, false
	}
	return node.Overlay, true
}

// Overlays returns copies of every overlay in insertion order.
func (m *Manager) Overlays() []Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Overlay, 0, len(m.order))
	for _, oid := range m.order {
		out = append(out, m.overlays[oid].Overlay)
	}
	return out
}

// Feature returns a copy of one feature.
func (m *Manager) Feature(overlayID, featureID string) (Feature, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, f, err := m.lookupFeature(overlayID, featureID)
	if err != nil {
		return Feature{}, false
	}
	return f.copy(), true
}

// FeatureHandle returns the rendered handle of one feature.
func (m *Manager) FeatureHandle(overlayID, featureID string) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, f, err := m.lookupFeature(overlayID, featureID)
	if err != nil || f.handle == nil {
		return nil, false
	}
	return f.handle, true
}

// OverlayHandles returns the handles of every feature under overlay id,
// child overlays included.
func (m *Manager) OverlayHandles(id string) []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Handle
	for _, node := range m.subtree(id) {
		for _, fid := range node.featureOrder {
			if h := node.features[fid].handle; h != nil {
				out = append(out, h)
			}
		}
	}
	return out
}

// Counts returns the number of overlays and features.
func (m *Manager) Counts() (overlays, features int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, node := range m.overlays {
		features += len(node.features)
	}
	return len(m.overlays), features
}
