// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package overlay

import "errors"

var (
	ErrEmptyID           = errors.New("id cannot be empty")
	ErrOverlayNotFound   = errors.New("overlay not found")
	ErrFeatureNotFound   = errors.New("feature not found")
	ErrCycle             = errors.New("overlay parent would create a cycle")
	ErrRender            = errors.New("render failed")
	ErrNoPreferences     = errors.New("no preference store configured")
	ErrPreferenceMissing = errors.New("preference not found")
)

// Handle is the engine's reference to a rendered feature. The Manager only
// holds it while the feature exists and never serializes it.
type Handle any

// Renderer draws features on the map engine. Calls are made while the
// Manager holds its lock, so implementations must not call back into it.
type Renderer interface {
	RenderFeature(format, locator string, params map[string]any, zoom bool) (Handle, error)
	Unrender(h Handle) error
	SetVisible(h Handle, visible bool) error
}

// Focuser moves the view to rendered features. Optional; see WithFocuser.
type Focuser interface {
	FocusHandles(handles []Handle) error
}

// Overlay is a copy of one overlay record.
type Overlay struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	IsHidden bool   `json:"isHidden"`
}

// Feature is a copy of one feature record.
type Feature struct {
	OverlayID string         `json:"overlayId"`
	FeatureID string         `json:"featureId"`
	Name      string         `json:"name"`
	Format    string         `json:"format"`
	Locator   string         `json:"feature,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Marker    map[string]any `json:"marker,omitempty"`
	Zoom      bool           `json:"zoom"`
	IsHidden  bool           `json:"isHidden"`
}

// FeatureSpec describes a feature to plot.
type FeatureSpec struct {
	OverlayID string
	FeatureID string
	Name      string
	Format    string
	Locator   string
	Params    map[string]any
	Marker    map[string]any
	Zoom      bool
}

// Tree node types.
const (
	NodeOverlay = "overlay"
	NodeFeature = "feature"
)

// TreeNode is one node of the resolved overlay forest returned by
// GetOverlayTree. Overlay nodes list child overlays first, then features.
type TreeNode struct {
	Type     string      `json:"type"`
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	IsHidden bool        `json:"isHidden"`
	Format   string      `json:"format,omitempty"`
	Zoom     bool        `json:"zoom,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`

	// OverlayID is set on feature nodes.
	OverlayID string `json:"overlayId,omitempty"`
}

type overlayNode struct {
	Overlay
	seq          uint64
	features     map[string]*featureNode
	featureOrder []string
}

type featureNode struct {
	Feature
	seq    uint64
	handle Handle
}

func (o *overlayNode) removeFeature(featureID string) {
	delete(o.features, featureID)
	for i, id := range o.featureOrder {
		if id == featureID {
			o.featureOrder = append(o.featureOrder[:i], o.featureOrder[i+1:]...)
			return
		}
	}
}

func (o *overlayNode) putFeature(f *featureNode) {
	if _, exists := o.features[f.FeatureID]; !exists {
		o.featureOrder = append(o.featureOrder, f.FeatureID)
	}
	o.features[f.FeatureID] = f
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneMap(t)
		case []any:
			s := make([]any, len(t))
			copy(s, t)
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

func (f *featureNode) copy() Feature {
	out := f.Feature
	out.Params = cloneMap(f.Params)
	out.Marker = cloneMap(f.Marker)
	return out
}
