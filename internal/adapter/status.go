// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package adapter

import (
	"context"
	"errors"

	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/logging"
)

// statusRequest answers map.status.request with one report per requested
// type, in view, format, about order.
func (a *Adapter) statusRequest(sender string, cmd cmwapi.Command) error {
	req, err := cmwapi.Decode[cmwapi.StatusRequest](cmd)
	if err != nil {
		return err
	}

	ctx := logging.ContextWithNewCorrelationID(context.Background())
	var errs []error
	if req.Wants(cmwapi.StatusTypeView) {
		errs = append(errs, a.SendStatusView(ctx, sender))
	}
	if req.Wants(cmwapi.StatusTypeFormat) {
		errs = append(errs, a.SendStatusFormat(ctx))
	}
	if req.Wants(cmwapi.StatusTypeAbout) {
		errs = append(errs, a.SendStatusAbout(ctx))
	}
	return errors.Join(errs...)
}

// SendStatusView publishes the current view. requester is the widget that
// asked for it, or "" for an unsolicited report.
func (a *Adapter) SendStatusView(ctx context.Context, requester string) error {
	s := a.viewport.Status()
	return a.api.Status.View.Send(ctx, map[string]any{
		"requester": requester,
		"bounds": map[string]any{
			"southWest": latLon(s.Bounds.SouthWest),
			"northEast": latLon(s.Bounds.NorthEast),
		},
		"center": latLon(s.Center),
		"range":  s.Range,
	})
}

// SendStatusFormat publishes the formats this widget can render.
func (a *Adapter) SendStatusFormat(ctx context.Context) error {
	return a.api.Status.Format.Send(ctx, cmwapi.StatusFormat{Formats: a.cfg.Formats})
}

// SendStatusAbout publishes the widget description.
func (a *Adapter) SendStatusAbout(ctx context.Context) error {
	return a.api.Status.About.Send(ctx, cmwapi.StatusAbout{
		Version:    a.cfg.Version,
		Type:       a.cfg.MapType,
		WidgetName: a.cfg.WidgetName,
	})
}
