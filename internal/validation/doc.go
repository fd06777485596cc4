// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

// Package validation holds the stateless checks applied to CMWAPI payloads.
//
// Two layers are provided:
//
//   - Predicates over raw decoded JSON values (IsString, IsNumber, ValidZoom,
//     ValidFormat, ValidObjectOrArray). None of them panic; failures are
//     reported through their return value.
//   - Struct validation with a thread-safe go-playground/validator singleton
//     for the typed command views in internal/cmwapi.
//
// # Envelope
//
// Every CMWAPI message is either one command object or an array of them.
// ValidObjectOrArray normalizes both to a slice and remembers which shape it
// saw:
//
//	res := validation.ValidObjectOrArray(data)
//	if !res.Result {
//	    // report res.Msg on map.error
//	}
//	for _, cmd := range res.Payload { ... }
//
// # Struct Tags
//
// Field names in messages are json names, so a failing
//
//	type LatLon struct {
//	    Lat *float64 `json:"lat" validate:"required,latitude"`
//	}
//
// reports "location.lat is required" when nested under a location field.
//
// Custom tags:
//   - mapformat: one of kml, kml-url, wms, wms-url, marker
package validation
