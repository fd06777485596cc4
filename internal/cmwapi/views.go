// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package cmwapi

// Typed views of the command objects. Decode[T] fills them from a Command
// after the channel rules have applied defaults, so creation fields such as
// Name and Zoom are already populated when a handler sees them.

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

// Bounds is a rectangle given by its south-west and north-east corners.
type Bounds struct {
	SouthWest *LatLon `json:"southWest" validate:"required"`
	NorthEast *LatLon `json:"northEast" validate:"required"`
}

// OverlayCreate is a map.overlay.create command.
type OverlayCreate struct {
	OverlayID string `json:"overlayId" validate:"required"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
}

// OverlayRef is a map.overlay.remove, hide or show command.
type OverlayRef struct {
	OverlayID string `json:"overlayId" validate:"required"`
}

// OverlayUpdate is a map.overlay.update command. Nil fields are left alone.
type OverlayUpdate struct {
	OverlayID string  `json:"overlayId" validate:"required"`
	Name      *string `json:"name,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
}

// FeaturePlot is a map.feature.plot command carrying inline feature data.
type FeaturePlot struct {
	OverlayID string `json:"overlayId" validate:"required"`
	FeatureID string `json:"featureId" validate:"required"`
	Name      string `json:"name"`
	Format    string `json:"format" validate:"required,mapformat"`
	Feature   string `json:"feature" validate:"required"`
	Zoom      bool   `json:"zoom"`
}

// FeaturePlotURL is a map.feature.plot.url command.
type FeaturePlotURL struct {
	OverlayID string         `json:"overlayId" validate:"required"`
	FeatureID string         `json:"featureId" validate:"required"`
	Name      string         `json:"name"`
	Format    string         `json:"format" validate:"required,mapformat"`
	URL       string         `json:"url" validate:"required"`
	Params    map[string]any `json:"params,omitempty"`
	Zoom      bool           `json:"zoom"`
}

// Marker is the point description of a map.feature.plot.marker command.
type Marker struct {
	Details string  `json:"details,omitempty"`
	IconURL string  `json:"iconUrl,omitempty"`
	LatLon  *LatLon `json:"latlon" validate:"required"`
}

// FeaturePlotMarker is a map.feature.plot.marker command.
type FeaturePlotMarker struct {
	OverlayID string  `json:"overlayId" validate:"required"`
	FeatureID string  `json:"featureId" validate:"required"`
	Name      string  `json:"name"`
	Marker    *Marker `json:"marker" validate:"required"`
	Zoom      bool    `json:"zoom"`
}

// FeatureRef is a map.feature.unplot or hide command.
type FeatureRef struct {
	OverlayID string `json:"overlayId" validate:"required"`
	FeatureID string `json:"featureId" validate:"required"`
}

// FeatureShow is a map.feature.show command.
type FeatureShow struct {
	OverlayID string `json:"overlayId" validate:"required"`
	FeatureID string `json:"featureId" validate:"required"`
	Zoom      bool   `json:"zoom"`
}

// FeatureSelection is a map.feature.selected or deselected command.
type FeatureSelection struct {
	OverlayID    string `json:"overlayId" validate:"required"`
	FeatureID    string `json:"featureId" validate:"required"`
	SelectedID   string `json:"selectedId,omitempty"`
	SelectedName string `json:"selectedName,omitempty"`
}

// FeatureUpdate is a map.feature.update command. Nil fields are left alone.
type FeatureUpdate struct {
	OverlayID    string  `json:"overlayId" validate:"required"`
	FeatureID    string  `json:"featureId" validate:"required"`
	Name         *string `json:"name,omitempty"`
	NewOverlayID *string `json:"newOverlayId,omitempty"`
}

// ViewZoom is a map.view.zoom command. Range is in meters.
type ViewZoom struct {
	Range *float64 `json:"range" validate:"required,gt=0"`
}

// ViewCenterOverlay is a map.view.center.overlay command.
type ViewCenterOverlay struct {
	OverlayID string `json:"overlayId" validate:"required"`
	Zoom      any    `json:"zoom,omitempty"`
}

// ViewCenterFeature is a map.view.center.feature command.
type ViewCenterFeature struct {
	OverlayID string `json:"overlayId" validate:"required"`
	FeatureID string `json:"featureId" validate:"required"`
	Zoom      any    `json:"zoom,omitempty"`
}

// ViewCenterLocation is a map.view.center.location command.
type ViewCenterLocation struct {
	Location *LatLon `json:"location" validate:"required"`
	Zoom     any     `json:"zoom,omitempty"`
}

// ViewCenterBounds is a map.view.center.bounds command.
type ViewCenterBounds struct {
	Bounds *Bounds `json:"bounds" validate:"required"`
	Zoom   any     `json:"zoom,omitempty"`
}

// ViewClicked is a map.view.clicked event.
type ViewClicked struct {
	Lat    *float64 `json:"lat" validate:"required,latitude"`
	Lon    *float64 `json:"lon" validate:"required,longitude"`
	Button string   `json:"button" validate:"required,oneof=left right middle"`
	Type   string   `json:"type" validate:"required,oneof=single double"`
	Keys   []string `json:"keys" validate:"omitempty,dive,oneof=alt ctrl shift none"`
}

// Status request types.
const (
	StatusTypeView   = "view"
	StatusTypeFormat = "format"
	StatusTypeAbout  = "about"
)

// StatusRequest is a map.status.request command.
type StatusRequest struct {
	Types []string `json:"types" validate:"omitempty,dive,oneof=view format about"`
}

// Wants reports whether the request asks for typ. No types means all.
func (r *StatusRequest) Wants(typ string) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, t := range r.Types {
		if t == typ {
			return true
		}
	}
	return false
}

// StatusView is a map.status.view report.
type StatusView struct {
	Requester string   `json:"requester,omitempty"`
	Bounds    *Bounds  `json:"bounds" validate:"required"`
	Center    *LatLon  `json:"center" validate:"required"`
	Range     *float64 `json:"range" validate:"required,gte=0"`
}

// StatusFormat is a map.status.format report.
type StatusFormat struct {
	Formats []string `json:"formats" validate:"required,min=1,dive,required"`
}

// StatusAbout is a map.status.about report.
type StatusAbout struct {
	Version    string `json:"version" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=2-D 3-D other"`
	WidgetName string `json:"widgetName" validate:"required"`
}
