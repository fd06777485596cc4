// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package cmwapi implements the CMWAPI 1.1 channel modules.

Every command channel has a Channel module with the same three operations:

  - Send validates a payload, fills defaults with this widget as the owner
    and publishes what is valid.
  - AddHandler subscribes a handler that receives validated, defaulted
    commands together with the sender's identity.
  - RemoveHandlers unsubscribes the channel.

A payload is one command object or an array of them. Invalid elements are
dropped individually and reported on map.error with one record per element;
the rest are published or delivered in the shape the sender used.

# Usage

	api := cmwapi.New(transport)

	_, err := api.Overlay.Create.AddHandler(func(sender string, p cmwapi.Payload) {
	    for _, cmd := range p.Commands() {
	        create, err := cmwapi.Decode[cmwapi.OverlayCreate](cmd)
	        ...
	    }
	})

	err = api.Feature.PlotURL.Send(ctx, map[string]any{
	    "featureId": "roads",
	    "url":       "https://example.com/roads.kml",
	})

# Defaults

Overlay and feature commands default overlayId to the sending widget's
identity. Creation commands default name to the id, zoom to false and
format to kml. Update commands never fill name, parentId or newOverlayId.
*/
package cmwapi
