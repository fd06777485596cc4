// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package adapter

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cmwapi/internal/logging"
	"github.com/tomtom215/cmwapi/internal/overlay"
)

// ErrUnknownHandle is returned for handles the renderer did not issue.
var ErrUnknownHandle = errors.New("unknown feature handle")

const (
	metersPerDegree = 111320.0
	defaultRange    = 10_000_000.0
	markerRange     = 5_000.0
)

// RenderedFeature is what the LogRenderer knows about one rendered feature.
type RenderedFeature struct {
	Handle   string
	Format   string
	Locator  string
	Visible  bool
	Location *Point
}

// LogRenderer is a headless engine. It issues UUID handles, tracks
// visibility and the view, and logs every call. It implements
// overlay.Renderer, overlay.Focuser and Viewport.
type LogRenderer struct {
	logger zerolog.Logger

	mu       sync.Mutex
	features map[string]*RenderedFeature
	center   Point
	rangeM   float64
}

var (
	_ overlay.Renderer = (*LogRenderer)(nil)
	_ overlay.Focuser  = (*LogRenderer)(nil)
	_ Viewport         = (*LogRenderer)(nil)
)

// NewLogRenderer returns a renderer showing the whole world.
func NewLogRenderer() *LogRenderer {
	return &LogRenderer{
		logger:   logging.WithComponent("renderer"),
		features: make(map[string]*RenderedFeature),
		rangeM:   defaultRange,
	}
}

// RenderFeature records a feature. Marker params carry latlon, which gives
// the feature a location the view can center on.
func (r *LogRenderer) RenderFeature(format, locator string, params map[string]any, zoom bool) (overlay.Handle, error) {
	f := &RenderedFeature{
		Handle:   uuid.NewString(),
		Format:   format,
		Locator:  locator,
		Visible:  true,
		Location: markerLocation(params),
	}

	r.mu.Lock()
	r.features[f.Handle] = f
	if zoom && f.Location != nil {
		r.center = *f.Location
		r.rangeM = markerRange
	}
	r.mu.Unlock()

	r.logger.Info().
		Str("handle", f.Handle).
		Str("format", format).
		Str("locator", truncate(locator, 120)).
		Bool("zoom", zoom).
		Msg("Feature rendered")
	return f.Handle, nil
}

func markerLocation(params map[string]any) *Point {
	ll, ok := params["latlon"].(map[string]any)
	if !ok {
		return nil
	}
	lat, latOK := ll["lat"].(float64)
	lon, lonOK := ll["lon"].(float64)
	if !latOK || !lonOK {
		return nil
	}
	return &Point{Lat: lat, Lon: lon}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func handleID(h overlay.Handle) string {
	s, _ := h.(string)
	return s
}

// Unrender forgets a feature.
func (r *LogRenderer) Unrender(h overlay.Handle) error {
	id := handleID(h)
	r.mu.Lock()
	_, ok := r.features[id]
	delete(r.features, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	r.logger.Info().Str("handle", id).Msg("Feature unrendered")
	return nil
}

// SetVisible shows or hides a feature.
func (r *LogRenderer) SetVisible(h overlay.Handle, visible bool) error {
	id := handleID(h)
	r.mu.Lock()
	f, ok := r.features[id]
	if ok {
		f.Visible = visible
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	r.logger.Debug().Str("handle", id).Bool("visible", visible).Msg("Feature visibility changed")
	return nil
}

// FocusHandles fits the view to the features.
func (r *LogRenderer) FocusHandles(handles []overlay.Handle) error {
	return r.CenterOnHandles(handles, Zoom{Mode: ZoomAuto})
}

// CenterOnLocation centers the view on p.
func (r *LogRenderer) CenterOnLocation(p Point, zoom Zoom) error {
	r.mu.Lock()
	r.center = p
	r.applyZoom(zoom, markerRange)
	r.mu.Unlock()

	r.logger.Info().Float64("lat", p.Lat).Float64("lon", p.Lon).Msg("View centered on location")
	return nil
}

// CenterOnBounds centers the view on e; auto zoom fits it.
func (r *LogRenderer) CenterOnBounds(e Extent, zoom Zoom) error {
	r.mu.Lock()
	r.center = e.Center()
	r.applyZoom(zoom, spanMeters(e))
	r.mu.Unlock()

	r.logger.Info().
		Float64("south", e.SouthWest.Lat).Float64("west", e.SouthWest.Lon).
		Float64("north", e.NorthEast.Lat).Float64("east", e.NorthEast.Lon).
		Msg("View centered on bounds")
	return nil
}

// CenterOnHandles centers the view on the located features among handles.
// Features without a location leave the view unchanged.
func (r *LogRenderer) CenterOnHandles(handles []overlay.Handle, zoom Zoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var located []Point
	for _, h := range handles {
		f, ok := r.features[handleID(h)]
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
		}
		if f.Location != nil {
			located = append(located, *f.Location)
		}
	}
	if len(located) == 0 {
		r.logger.Debug().Int("handles", len(handles)).Msg("No located features to center on")
		return nil
	}

	e := Extent{SouthWest: located[0], NorthEast: located[0]}
	for _, p := range located[1:] {
		e.SouthWest.Lat = math.Min(e.SouthWest.Lat, p.Lat)
		e.SouthWest.Lon = math.Min(e.SouthWest.Lon, p.Lon)
		e.NorthEast.Lat = math.Max(e.NorthEast.Lat, p.Lat)
		e.NorthEast.Lon = math.Max(e.NorthEast.Lon, p.Lon)
	}
	r.center = e.Center()
	r.applyZoom(zoom, math.Max(spanMeters(e), markerRange))

	r.logger.Info().Int("features", len(located)).Msg("View centered on features")
	return nil
}

// Zoom sets the view range in meters.
func (r *LogRenderer) Zoom(rangeMeters float64) error {
	if rangeMeters <= 0 {
		return fmt.Errorf("range must be positive, got %v", rangeMeters)
	}
	r.mu.Lock()
	r.rangeM = rangeMeters
	r.mu.Unlock()

	r.logger.Info().Float64("range", rangeMeters).Msg("View zoomed")
	return nil
}

// applyZoom updates the range. Caller holds r.mu.
func (r *LogRenderer) applyZoom(zoom Zoom, fit float64) {
	switch zoom.Mode {
	case ZoomAuto:
		r.rangeM = fit
	case ZoomRange:
		r.rangeM = zoom.Range
	}
}

func spanMeters(e Extent) float64 {
	lat := math.Abs(e.NorthEast.Lat-e.SouthWest.Lat) * metersPerDegree
	lon := math.Abs(e.NorthEast.Lon-e.SouthWest.Lon) * metersPerDegree * math.Cos(e.Center().Lat*math.Pi/180)
	return math.Max(lat, lon)
}

// Status returns the current view. Bounds are derived from center and range.
func (r *LogRenderer) Status() ViewStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	halfLat := math.Min(r.rangeM/2/metersPerDegree, 90)
	cos := math.Cos(r.center.Lat * math.Pi / 180)
	halfLon := 180.0
	if cos > 1e-6 {
		halfLon = math.Min(r.rangeM/2/(metersPerDegree*cos), 180)
	}

	return ViewStatus{
		Center: r.center,
		Range:  r.rangeM,
		Bounds: Extent{
			SouthWest: Point{Lat: math.Max(r.center.Lat-halfLat, -90), Lon: math.Max(r.center.Lon-halfLon, -180)},
			NorthEast: Point{Lat: math.Min(r.center.Lat+halfLat, 90), Lon: math.Min(r.center.Lon+halfLon, 180)},
		},
	}
}

// Feature returns a copy of what was rendered for h.
func (r *LogRenderer) Feature(h overlay.Handle) (RenderedFeature, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.features[handleID(h)]
	if !ok {
		return RenderedFeature{}, false
	}
	return *f, true
}

// Rendered returns the number of rendered features.
func (r *LogRenderer) Rendered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.features)
}
