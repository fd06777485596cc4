// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

// Package channels is the CMWAPI 1.1 channel registry: the fixed mapping from
// operation name to the dotted channel identifier it is published on.
package channels

import "sort"

// Overlay channels.
const (
	MapOverlayCreate = "map.overlay.create"
	MapOverlayRemove = "map.overlay.remove"
	MapOverlayHide   = "map.overlay.hide"
	MapOverlayShow   = "map.overlay.show"
	MapOverlayUpdate = "map.overlay.update"
)

// Feature channels.
const (
	MapFeaturePlot       = "map.feature.plot"
	MapFeaturePlotURL    = "map.feature.plot.url"
	MapFeaturePlotMarker = "map.feature.plot.marker"
	MapFeatureUnplot     = "map.feature.unplot"
	MapFeatureHide       = "map.feature.hide"
	MapFeatureShow       = "map.feature.show"
	MapFeatureSelected   = "map.feature.selected"
	MapFeatureDeselected = "map.feature.deselected"
	MapFeatureUpdate     = "map.feature.update"
)

// View channels.
const (
	MapViewZoom           = "map.view.zoom"
	MapViewCenterOverlay  = "map.view.center.overlay"
	MapViewCenterFeature  = "map.view.center.feature"
	MapViewCenterLocation = "map.view.center.location"
	MapViewCenterBounds   = "map.view.center.bounds"
	MapViewClicked        = "map.view.clicked"
)

// Status channels.
const (
	MapStatusRequest = "map.status.request"
	MapStatusView    = "map.status.view"
	MapStatusFormat  = "map.status.format"
	MapStatusAbout   = "map.status.about"
)

// MapError carries validation and internal error records.
const MapError = "map.error"

var byOperation = map[string]string{
	"overlay.create":       MapOverlayCreate,
	"overlay.remove":       MapOverlayRemove,
	"overlay.hide":         MapOverlayHide,
	"overlay.show":         MapOverlayShow,
	"overlay.update":       MapOverlayUpdate,
	"feature.plot":         MapFeaturePlot,
	"feature.plot.url":     MapFeaturePlotURL,
	"feature.plot.marker":  MapFeaturePlotMarker,
	"feature.unplot":       MapFeatureUnplot,
	"feature.hide":         MapFeatureHide,
	"feature.show":         MapFeatureShow,
	"feature.selected":     MapFeatureSelected,
	"feature.deselected":   MapFeatureDeselected,
	"feature.update":       MapFeatureUpdate,
	"view.zoom":            MapViewZoom,
	"view.center.overlay":  MapViewCenterOverlay,
	"view.center.feature":  MapViewCenterFeature,
	"view.center.location": MapViewCenterLocation,
	"view.center.bounds":   MapViewCenterBounds,
	"view.clicked":         MapViewClicked,
	"status.request":       MapStatusRequest,
	"status.view":          MapStatusView,
	"status.format":        MapStatusFormat,
	"status.about":         MapStatusAbout,
	"error":                MapError,
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(byOperation))
	for _, ch := range byOperation {
		m[ch] = struct{}{}
	}
	return m
}()

// Lookup returns the channel for an operation name such as "overlay.update".
// A full channel id is accepted as well.
func Lookup(op string) (string, bool) {
	if ch, ok := byOperation[op]; ok {
		return ch, true
	}
	if _, ok := known[op]; ok {
		return op, true
	}
	return "", false
}

// IsKnown reports whether channel is a registered CMWAPI channel.
func IsKnown(channel string) bool {
	_, ok := known[channel]
	return ok
}

// All returns every registered channel, sorted.
func All() []string {
	out := make([]string, 0, len(known))
	for ch := range known {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
