// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/overlay"
)

// Config describes the widget in map.status.about replies.
type Config struct {
	WidgetName string
	Version    string
	MapType    string
	Formats    []string
}

// Adapter connects the channel modules to the tree manager and the view.
type Adapter struct {
	api      *cmwapi.API
	manager  *overlay.Manager
	viewport Viewport
	cfg      Config
	logger   zerolog.Logger

	mu    sync.Mutex
	bound []*cmwapi.Channel
}

// New returns an unbound adapter.
func New(api *cmwapi.API, manager *overlay.Manager, viewport Viewport, cfg Config) *Adapter {
	if cfg.WidgetName == "" {
		cfg.WidgetName = "cmwapi-map"
	}
	if cfg.Version == "" {
		cfg.Version = "1.1.0"
	}
	if cfg.MapType == "" {
		cfg.MapType = "2-D"
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{"kml", "wms"}
	}
	return &Adapter{
		api:      api,
		manager:  manager,
		viewport: viewport,
		cfg:      cfg,
		logger:   logging.WithComponent("adapter"),
	}
}

// Bind subscribes handlers on every inbound command channel. Calling it
// again replaces the earlier handlers.
func (a *Adapter) Bind() error {
	routes := []struct {
		ch *cmwapi.Channel
		fn func(sender string, cmd cmwapi.Command) error
	}{
		{a.api.Overlay.Create, a.overlayCreate},
		{a.api.Overlay.Remove, a.overlayRemove},
		{a.api.Overlay.Hide, a.overlayHide},
		{a.api.Overlay.Show, a.overlayShow},
		{a.api.Overlay.Update, a.overlayUpdate},
		{a.api.Feature.Plot, a.featurePlot},
		{a.api.Feature.PlotURL, a.featurePlotURL},
		{a.api.Feature.PlotMarker, a.featurePlotMarker},
		{a.api.Feature.Unplot, a.featureUnplot},
		{a.api.Feature.Hide, a.featureHide},
		{a.api.Feature.Show, a.featureShow},
		{a.api.Feature.Selected, a.featureSelected},
		{a.api.Feature.Deselected, a.featureDeselected},
		{a.api.Feature.Update, a.featureUpdate},
		{a.api.View.Zoom, a.viewZoom},
		{a.api.View.CenterOverlay, a.viewCenterOverlay},
		{a.api.View.CenterFeature, a.viewCenterFeature},
		{a.api.View.CenterLocation, a.viewCenterLocation},
		{a.api.View.CenterBounds, a.viewCenterBounds},
		{a.api.Status.Request, a.statusRequest},
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	bound := make([]*cmwapi.Channel, 0, len(routes))
	for _, r := range routes {
		if _, err := r.ch.AddHandler(a.dispatch(r.ch.ID(), r.fn)); err != nil {
			for _, ch := range bound {
				_ = ch.RemoveHandlers()
			}
			return fmt.Errorf("bind %s: %w", r.ch.ID(), err)
		}
		bound = append(bound, r.ch)
	}
	a.bound = bound

	a.logger.Info().Int("channels", len(bound)).Str("identity", a.api.Identity()).Msg("Adapter bound")
	return nil
}

// Unbind removes every handler registered by Bind.
func (a *Adapter) Unbind() error {
	a.mu.Lock()
	bound := a.bound
	a.bound = nil
	a.mu.Unlock()

	var errs []error
	for _, ch := range bound {
		if err := ch.RemoveHandlers(); err != nil {
			errs = append(errs, fmt.Errorf("unbind %s: %w", ch.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// dispatch runs fn once per command. Failures are logged; the tree manager
// has already told its notifier.
func (a *Adapter) dispatch(channel string, fn func(string, cmwapi.Command) error) cmwapi.Handler {
	return func(sender string, p cmwapi.Payload) {
		for _, cmd := range p.Commands() {
			if err := fn(sender, cmd); err != nil {
				a.logger.Debug().Err(err).
					Str("channel", channel).
					Str("sender", sender).
					Msg("Command not applied")
			}
		}
	}
}

// reportMissing publishes a validation error for a command that names
// something the tree does not hold.
func (a *Adapter) reportMissing(channel string, cmd cmwapi.Command, err error) error {
	if serr := a.api.Error.Send(context.Background(), a.api.Identity(), channel, cmd, err.Error()); serr != nil {
		a.logger.Warn().Err(serr).Msg("Failed to report missing target")
	}
	return err
}

// Overlay commands.

func (a *Adapter) overlayCreate(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.OverlayCreate](cmd)
	if err != nil {
		return err
	}
	return a.manager.CreateOverlay(sender, c.OverlayID, c.Name, c.ParentID)
}

func (a *Adapter) overlayRemove(sender string, cmd cmwapi.Command) error {
	return a.manager.RemoveOverlay(sender, cmd.OverlayID())
}

func (a *Adapter) overlayHide(sender string, cmd cmwapi.Command) error {
	return a.manager.HideOverlay(sender, cmd.OverlayID())
}

func (a *Adapter) overlayShow(sender string, cmd cmwapi.Command) error {
	return a.manager.ShowOverlay(sender, cmd.OverlayID())
}

func (a *Adapter) overlayUpdate(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.OverlayUpdate](cmd)
	if err != nil {
		return err
	}
	return a.manager.UpdateOverlay(sender, c.OverlayID, c.Name, c.ParentID)
}

// Feature commands.

func (a *Adapter) featurePlot(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.FeaturePlot](cmd)
	if err != nil {
		return err
	}
	return a.manager.PlotFeature(sender, overlay.FeatureSpec{
		OverlayID: c.OverlayID,
		FeatureID: c.FeatureID,
		Name:      c.Name,
		Format:    c.Format,
		Locator:   c.Feature,
		Zoom:      c.Zoom,
	})
}

func (a *Adapter) featurePlotURL(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.FeaturePlotURL](cmd)
	if err != nil {
		return err
	}
	return a.manager.PlotFeatureURL(sender, c.OverlayID, c.FeatureID, c.Name, c.Format, c.URL, c.Params, c.Zoom)
}

func (a *Adapter) featurePlotMarker(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.FeaturePlotMarker](cmd)
	if err != nil {
		return err
	}
	marker, _ := cmd.Object("marker")
	return a.manager.PlotMarker(sender, c.OverlayID, c.FeatureID, c.Name, marker, c.Zoom)
}

func (a *Adapter) featureUnplot(sender string, cmd cmwapi.Command) error {
	return a.manager.UnplotFeature(sender, cmd.OverlayID(), cmd.FeatureID())
}

func (a *Adapter) featureHide(sender string, cmd cmwapi.Command) error {
	return a.manager.HideFeature(sender, cmd.OverlayID(), cmd.FeatureID())
}

func (a *Adapter) featureShow(sender string, cmd cmwapi.Command) error {
	zoom, _ := cmd.Bool("zoom")
	return a.manager.ShowFeature(sender, cmd.OverlayID(), cmd.FeatureID(), zoom)
}

func (a *Adapter) featureSelected(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.FeatureSelection](cmd)
	if err != nil {
		return err
	}
	a.logger.Info().
		Str("sender", sender).
		Str("overlay_id", c.OverlayID).
		Str("feature_id", c.FeatureID).
		Str("selected_id", c.SelectedID).
		Msg("Feature selected")
	return nil
}

func (a *Adapter) featureDeselected(sender string, cmd cmwapi.Command) error {
	a.logger.Info().
		Str("sender", sender).
		Str("overlay_id", cmd.OverlayID()).
		Str("feature_id", cmd.FeatureID()).
		Msg("Feature deselected")
	return nil
}

func (a *Adapter) featureUpdate(sender string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.FeatureUpdate](cmd)
	if err != nil {
		return err
	}
	return a.manager.UpdateFeature(sender, c.OverlayID, c.FeatureID, c.Name, c.NewOverlayID)
}

// View commands.

func (a *Adapter) viewZoom(_ string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.ViewZoom](cmd)
	if err != nil {
		return err
	}
	return a.viewport.Zoom(*c.Range)
}

func (a *Adapter) viewCenterOverlay(_ string, cmd cmwapi.Command) error {
	id := cmd.OverlayID()
	if _, ok := a.manager.Overlay(id); !ok {
		return a.reportMissing(a.api.View.CenterOverlay.ID(), cmd, fmt.Errorf("%w: %s", overlay.ErrOverlayNotFound, id))
	}
	return a.viewport.CenterOnHandles(a.manager.OverlayHandles(id), ParseZoom(cmd["zoom"]))
}

func (a *Adapter) viewCenterFeature(_ string, cmd cmwapi.Command) error {
	h, ok := a.manager.FeatureHandle(cmd.OverlayID(), cmd.FeatureID())
	if !ok {
		return a.reportMissing(a.api.View.CenterFeature.ID(), cmd,
			fmt.Errorf("%w: %s/%s", overlay.ErrFeatureNotFound, cmd.OverlayID(), cmd.FeatureID()))
	}
	return a.viewport.CenterOnHandles([]overlay.Handle{h}, ParseZoom(cmd["zoom"]))
}

func (a *Adapter) viewCenterLocation(_ string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.ViewCenterLocation](cmd)
	if err != nil {
		return err
	}
	return a.viewport.CenterOnLocation(pointOf(c.Location), ParseZoom(c.Zoom))
}

func (a *Adapter) viewCenterBounds(_ string, cmd cmwapi.Command) error {
	c, err := cmwapi.Decode[cmwapi.ViewCenterBounds](cmd)
	if err != nil {
		return err
	}
	return a.viewport.CenterOnBounds(extentOf(c.Bounds), ParseZoom(c.Zoom))
}
