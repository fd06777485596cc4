// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package adapter

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cmwapi/internal/cmwapi"
)

// Outbound pass-throughs used by local UI actions. Each builds the command
// and hands it to the channel module, which applies defaults and validation.

// SendOverlayCreate publishes map.overlay.create. Empty arguments are left
// out so the channel defaults apply.
func (a *Adapter) SendOverlayCreate(ctx context.Context, id, name, parentID string) error {
	cmd := cmwapi.Command{}
	setIf(cmd, "overlayId", id)
	setIf(cmd, "name", name)
	setIf(cmd, "parentId", parentID)
	return a.api.Overlay.Create.Send(ctx, cmd)
}

// SendOverlayRemove publishes map.overlay.remove.
func (a *Adapter) SendOverlayRemove(ctx context.Context, overlayID string) error {
	return a.api.Overlay.Remove.Send(ctx, cmwapi.Command{"overlayId": overlayID})
}

// SendOverlayHide publishes map.overlay.hide.
func (a *Adapter) SendOverlayHide(ctx context.Context, overlayID string) error {
	return a.api.Overlay.Hide.Send(ctx, cmwapi.Command{"overlayId": overlayID})
}

// SendOverlayShow publishes map.overlay.show.
func (a *Adapter) SendOverlayShow(ctx context.Context, overlayID string) error {
	return a.api.Overlay.Show.Send(ctx, cmwapi.Command{"overlayId": overlayID})
}

// SendOverlayUpdate publishes map.overlay.update. Nil fields are omitted.
func (a *Adapter) SendOverlayUpdate(ctx context.Context, overlayID string, name, parentID *string) error {
	cmd := cmwapi.Command{"overlayId": overlayID}
	setPtr(cmd, "name", name)
	setPtr(cmd, "parentId", parentID)
	return a.api.Overlay.Update.Send(ctx, cmd)
}

// SendFeaturePlotURL publishes map.feature.plot.url. params may be a map or
// a JSON object string; an empty string or nil omits it.
func (a *Adapter) SendFeaturePlotURL(ctx context.Context, overlayID, featureID, name, format, url string, params any, zoom bool) error {
	cmd := cmwapi.Command{
		"overlayId": overlayID,
		"featureId": featureID,
		"url":       url,
		"zoom":      zoom,
	}
	setIf(cmd, "name", name)
	setIf(cmd, "format", format)

	switch p := params.(type) {
	case nil:
	case string:
		if p != "" {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(p), &decoded); err != nil {
				return fmt.Errorf("parse params: %w", err)
			}
			cmd["params"] = decoded
		}
	default:
		cmd["params"] = p
	}
	return a.api.Feature.PlotURL.Send(ctx, cmd)
}

// SendFeatureUnplot publishes map.feature.unplot.
func (a *Adapter) SendFeatureUnplot(ctx context.Context, overlayID, featureID string) error {
	return a.api.Feature.Unplot.Send(ctx, featureCmd(overlayID, featureID))
}

// SendFeatureUpdate publishes map.feature.update. Nil fields are omitted.
func (a *Adapter) SendFeatureUpdate(ctx context.Context, overlayID, featureID string, name, newOverlayID *string) error {
	cmd := featureCmd(overlayID, featureID)
	setPtr(cmd, "name", name)
	setPtr(cmd, "newOverlayId", newOverlayID)
	return a.api.Feature.Update.Send(ctx, cmd)
}

// SendFeatureHide publishes map.feature.hide.
func (a *Adapter) SendFeatureHide(ctx context.Context, overlayID, featureID string) error {
	return a.api.Feature.Hide.Send(ctx, featureCmd(overlayID, featureID))
}

// SendFeatureShow publishes map.feature.show.
func (a *Adapter) SendFeatureShow(ctx context.Context, overlayID, featureID string, zoom bool) error {
	cmd := featureCmd(overlayID, featureID)
	cmd["zoom"] = zoom
	return a.api.Feature.Show.Send(ctx, cmd)
}

// SendFeatureSelected publishes map.feature.selected for a feature the user
// picked on the map.
func (a *Adapter) SendFeatureSelected(ctx context.Context, overlayID, featureID, selectedID, selectedName string) error {
	cmd := featureCmd(overlayID, featureID)
	setIf(cmd, "selectedId", selectedID)
	setIf(cmd, "selectedName", selectedName)
	return a.api.Feature.Selected.Send(ctx, cmd)
}

// SendFeatureDeselected publishes map.feature.deselected.
func (a *Adapter) SendFeatureDeselected(ctx context.Context, overlayID, featureID, selectedID, selectedName string) error {
	cmd := featureCmd(overlayID, featureID)
	setIf(cmd, "selectedId", selectedID)
	setIf(cmd, "selectedName", selectedName)
	return a.api.Feature.Deselected.Send(ctx, cmd)
}

// Click describes a map click for map.view.clicked. Empty Button and Type
// take the channel defaults.
type Click struct {
	Lat, Lon float64
	Button   string
	Type     string
	Keys     []string
}

// SendViewClicked publishes map.view.clicked.
func (a *Adapter) SendViewClicked(ctx context.Context, c Click) error {
	cmd := cmwapi.Command{"lat": c.Lat, "lon": c.Lon}
	setIf(cmd, "button", c.Button)
	setIf(cmd, "type", c.Type)
	if len(c.Keys) > 0 {
		keys := make([]any, len(c.Keys))
		for i, k := range c.Keys {
			keys[i] = k
		}
		cmd["keys"] = keys
	}
	return a.api.View.Clicked.Send(ctx, cmd)
}

func featureCmd(overlayID, featureID string) cmwapi.Command {
	return cmwapi.Command{"overlayId": overlayID, "featureId": featureID}
}

func setIf(cmd cmwapi.Command, key, value string) {
	if value != "" {
		cmd[key] = value
	}
}

func setPtr(cmd cmwapi.Command, key string, value *string) {
	if value != nil {
		cmd[key] = *value
	}
}
