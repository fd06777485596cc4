// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package cmwapi

import (
	"errors"
	"sort"

	"github.com/tomtom215/cmwapi/internal/bus"
	"github.com/tomtom215/cmwapi/internal/channels"
)

// OverlayChannels groups the map.overlay.* modules.
type OverlayChannels struct {
	Create, Remove, Hide, Show, Update *Channel
}

// FeatureChannels groups the map.feature.* modules.
type FeatureChannels struct {
	Plot, PlotURL, PlotMarker, Unplot, Hide, Show, Selected, Deselected, Update *Channel
}

// ViewChannels groups the map.view.* modules.
type ViewChannels struct {
	Zoom, CenterOverlay, CenterFeature, CenterLocation, CenterBounds, Clicked *Channel
}

// StatusChannels groups the map.status.* modules.
type StatusChannels struct {
	Request, View, Format, About *Channel
}

// API is the full set of channel modules bound to one transport.
type API struct {
	Overlay OverlayChannels
	Feature FeatureChannels
	View    ViewChannels
	Status  StatusChannels
	Error   *ErrorChannel

	transport bus.Transport
	byID      map[string]*Channel
}

// New builds every channel module on t.
func New(t bus.Transport) *API {
	errs := NewErrorChannel(t)
	table := rules()
	byID := make(map[string]*Channel, len(table))
	for id, r := range table {
		byID[id] = newChannel(r, t, errs)
	}

	return &API{
		Overlay: OverlayChannels{
			Create: byID[channels.MapOverlayCreate],
			Remove: byID[channels.MapOverlayRemove],
			Hide:   byID[channels.MapOverlayHide],
			Show:   byID[channels.MapOverlayShow],
			Update: byID[channels.MapOverlayUpdate],
		},
		Feature: FeatureChannels{
			Plot:       byID[channels.MapFeaturePlot],
			PlotURL:    byID[channels.MapFeaturePlotURL],
			PlotMarker: byID[channels.MapFeaturePlotMarker],
			Unplot:     byID[channels.MapFeatureUnplot],
			Hide:       byID[channels.MapFeatureHide],
			Show:       byID[channels.MapFeatureShow],
			Selected:   byID[channels.MapFeatureSelected],
			Deselected: byID[channels.MapFeatureDeselected],
			Update:     byID[channels.MapFeatureUpdate],
		},
		View: ViewChannels{
			Zoom:           byID[channels.MapViewZoom],
			CenterOverlay:  byID[channels.MapViewCenterOverlay],
			CenterFeature:  byID[channels.MapViewCenterFeature],
			CenterLocation: byID[channels.MapViewCenterLocation],
			CenterBounds:   byID[channels.MapViewCenterBounds],
			Clicked:        byID[channels.MapViewClicked],
		},
		Status: StatusChannels{
			Request: byID[channels.MapStatusRequest],
			View:    byID[channels.MapStatusView],
			Format:  byID[channels.MapStatusFormat],
			About:   byID[channels.MapStatusAbout],
		},
		Error:     errs,
		transport: t,
		byID:      byID,
	}
}

// Identity returns the widget identity the modules publish as.
func (a *API) Identity() string {
	return a.transport.Identity()
}

// Channel returns the module for an operation name ("overlay.create") or a
// channel id ("map.overlay.create"). map.error is not a command channel.
func (a *API) Channel(id string) (*Channel, bool) {
	ch, ok := channels.Lookup(id)
	if !ok {
		return nil, false
	}
	c, ok := a.byID[ch]
	return c, ok
}

// Channels returns every command module sorted by channel id.
func (a *API) Channels() []*Channel {
	out := make([]*Channel, 0, len(a.byID))
	for _, c := range a.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RemoveAllHandlers unsubscribes every module, map.error included.
func (a *API) RemoveAllHandlers() error {
	var errs []error
	for _, c := range a.Channels() {
		if c.HasHandler() {
			errs = append(errs, c.RemoveHandlers())
		}
	}
	errs = append(errs, a.Error.RemoveHandlers())
	return errors.Join(errs...)
}
