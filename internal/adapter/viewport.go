// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package adapter

import (
	"github.com/tomtom215/cmwapi/internal/cmwapi"
	"github.com/tomtom215/cmwapi/internal/overlay"
	"github.com/tomtom215/cmwapi/internal/validation"
)

// Point is a position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Extent is a rectangle in degrees.
type Extent struct {
	SouthWest Point `json:"southWest"`
	NorthEast Point `json:"northEast"`
}

// Center returns the midpoint of the extent.
func (e Extent) Center() Point {
	return Point{
		Lat: (e.SouthWest.Lat + e.NorthEast.Lat) / 2,
		Lon: (e.SouthWest.Lon + e.NorthEast.Lon) / 2,
	}
}

// ViewStatus is the current view as reported on map.status.view.
type ViewStatus struct {
	Bounds Extent  `json:"bounds"`
	Center Point   `json:"center"`
	Range  float64 `json:"range"`
}

// ZoomMode says how a center command treats the view range.
type ZoomMode int

const (
	// ZoomNone keeps the current range.
	ZoomNone ZoomMode = iota
	// ZoomAuto fits the target.
	ZoomAuto
	// ZoomRange sets the range to Zoom.Range meters.
	ZoomRange
)

// Zoom is a decoded CMWAPI zoom value.
type Zoom struct {
	Mode  ZoomMode
	Range float64
}

// ParseZoom interprets a zoom field: true and "auto" fit the target, a
// positive number is a range in meters, anything else keeps the range.
func ParseZoom(v any) Zoom {
	switch z := v.(type) {
	case bool:
		if z {
			return Zoom{Mode: ZoomAuto}
		}
		return Zoom{}
	case string:
		if z == validation.ZoomAuto {
			return Zoom{Mode: ZoomAuto}
		}
		return Zoom{}
	}
	if f, ok := validation.ToFloat(v); ok && f > 0 {
		return Zoom{Mode: ZoomRange, Range: f}
	}
	return Zoom{}
}

// Viewport controls the map view.
type Viewport interface {
	CenterOnLocation(p Point, zoom Zoom) error
	CenterOnBounds(e Extent, zoom Zoom) error
	CenterOnHandles(handles []overlay.Handle, zoom Zoom) error
	Zoom(rangeMeters float64) error
	Status() ViewStatus
}

func pointOf(ll *cmwapi.LatLon) Point {
	if ll == nil || ll.Lat == nil || ll.Lon == nil {
		return Point{}
	}
	return Point{Lat: *ll.Lat, Lon: *ll.Lon}
}

func extentOf(b *cmwapi.Bounds) Extent {
	if b == nil {
		return Extent{}
	}
	return Extent{SouthWest: pointOf(b.SouthWest), NorthEast: pointOf(b.NorthEast)}
}

func latLon(p Point) map[string]any {
	return map[string]any{"lat": p.Lat, "lon": p.Lon}
}
