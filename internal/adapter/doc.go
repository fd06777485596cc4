// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package adapter binds the CMWAPI channel modules to a map engine.

Inbound commands from any widget on the bus are decoded and routed to the
overlay tree manager (overlay and feature channels) or to a Viewport (view
channels). map.status.request is answered with map.status.view, format and
about reports. Local UI actions use the Send helpers, which go through the
same channel modules and therefore also reach this widget's own handlers.

LogRenderer is a headless engine. It satisfies overlay.Renderer,
overlay.Focuser and Viewport, keeps the view in memory and logs every call,
which makes it suitable for servers and tests.

Usage:

	r := adapter.NewLogRenderer()
	m := overlay.NewManager(r, overlay.WithFocuser(r))
	a := adapter.New(api, m, r, adapter.Config{WidgetName: "ops map"})
	if err := a.Bind(); err != nil {
		return err
	}
	defer a.Unbind()
*/
package adapter
