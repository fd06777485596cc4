// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package cmwapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomtom215/cmwapi/internal/channels"
	"github.com/tomtom215/cmwapi/internal/validation"
)

// rule is the per-channel normalization applied to every command element,
// both before publishing and after receiving.
type rule struct {
	channel string

	// overlayID defaults a missing overlayId to the sender's identity.
	overlayID bool

	// fills run in order after the overlayId default.
	fills []fill

	// checks run on the raw command; typed runs only when they all pass.
	checks []check
	typed  check
}

type (
	fill  func(Command)
	check func(Command) []string
)

// apply normalizes c in place and returns the combined failure message, or
// "" when the element is valid.
func (r *rule) apply(c Command, identity string) string {
	if r.overlayID && identity != "" {
		if v, ok := c["overlayId"]; !ok || v == nil || v == "" {
			c["overlayId"] = identity
		}
	}
	for _, f := range r.fills {
		f(c)
	}

	var msgs []string
	for _, chk := range r.checks {
		msgs = append(msgs, chk(c)...)
	}
	if len(msgs) == 0 && r.typed != nil {
		msgs = r.typed(c)
	}
	return strings.Join(msgs, "; ")
}

// Fills.

func defaultFrom(field, from string) fill {
	return func(c Command) {
		if v, ok := c[field]; ok && v != nil && v != "" {
			return
		}
		if s, ok := c[from].(string); ok && s != "" {
			c[field] = s
		}
	}
}

func defaultValue(field string, value any) fill {
	return func(c Command) {
		if v, ok := c[field]; ok && v != nil && v != "" {
			return
		}
		c[field] = cloneValue(value)
	}
}

// defaultList is defaultValue that also replaces an empty list.
func defaultList(field string, value []any) fill {
	return func(c Command) {
		if v, ok := c[field]; ok && v != nil && v != "" && !isEmptyList(v) {
			return
		}
		c[field] = cloneValue(value)
	}
}

func isEmptyList(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}

// Checks.

func required(field string) check {
	return func(c Command) []string {
		v, ok := c[field]
		if !ok || v == nil {
			return []string{field + " is required"}
		}
		s, isString := v.(string)
		if !isString {
			return []string{field + " must be a string"}
		}
		if s == "" {
			return []string{field + " is required"}
		}
		return nil
	}
}

func optionalString(field string) check {
	return func(c Command) []string {
		if c.Has(field) && !validation.IsString(c[field]) {
			return []string{field + " must be a string"}
		}
		return nil
	}
}

func boolean(field string) check {
	return func(c Command) []string {
		if c.Has(field) && !validation.IsBoolean(c[field]) {
			return []string{field + " must be a boolean"}
		}
		return nil
	}
}

func number(field string) check {
	return func(c Command) []string {
		if c.Has(field) && !validation.IsNumber(c[field]) {
			return []string{field + " must be a number"}
		}
		return nil
	}
}

func object(field string, mandatory bool) check {
	return func(c Command) []string {
		if !c.Has(field) {
			if mandatory {
				return []string{field + " is required"}
			}
			return nil
		}
		if !validation.IsObject(c[field]) {
			return []string{field + " must be an object"}
		}
		return nil
	}
}

func stringList(field string) check {
	return func(c Command) []string {
		if !c.Has(field) {
			return nil
		}
		list, ok := c[field].([]any)
		if !ok {
			return []string{field + " must be an array"}
		}
		for i, v := range list {
			if !validation.IsString(v) {
				return []string{fmt.Sprintf("%s[%d] must be a string", field, i)}
			}
		}
		return nil
	}
}

func zoom(c Command) []string {
	if c.Has("zoom") && !validation.ValidZoom(c["zoom"]) {
		return []string{`zoom must be true, false, "auto" or a number`}
	}
	return nil
}

func format(allowed ...string) check {
	return func(c Command) []string {
		if c.Has("format") && !validation.ValidFormat(c["format"], allowed...) {
			return []string{"format must be one of: " + strings.Join(allowed, " ")}
		}
		return nil
	}
}

func typed[T any]() check {
	return func(c Command) []string {
		_, err := Decode[T](c)
		if err == nil {
			return nil
		}
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			out := make([]string, 0, len(verr.Errors()))
			for _, fe := range verr.Errors() {
				out = append(out, fe.Error())
			}
			return out
		}
		return []string{err.Error()}
	}
}

// Rule table.

var overlayRef = []check{required("overlayId")}

var featureRef = []check{required("overlayId"), required("featureId")}

func featureChecks(extra ...check) []check {
	return append([]check{required("overlayId"), required("featureId")}, extra...)
}

var plotDefaults = []fill{defaultFrom("name", "featureId"), defaultValue("zoom", false)}

func rules() map[string]*rule {
	list := []*rule{
		{
			channel:   channels.MapOverlayCreate,
			overlayID: true,
			fills:     []fill{defaultFrom("name", "overlayId")},
			checks:    []check{required("overlayId"), optionalString("name"), optionalString("parentId")},
		},
		{channel: channels.MapOverlayRemove, overlayID: true, checks: overlayRef},
		{channel: channels.MapOverlayHide, overlayID: true, checks: overlayRef},
		{channel: channels.MapOverlayShow, overlayID: true, checks: overlayRef},
		{
			channel:   channels.MapOverlayUpdate,
			overlayID: true,
			checks:    []check{required("overlayId"), optionalString("name"), optionalString("parentId")},
		},

		{
			channel:   channels.MapFeaturePlot,
			overlayID: true,
			fills:     append([]fill{defaultValue("format", channels.FormatKML)}, plotDefaults...),
			checks: featureChecks(
				required("feature"), optionalString("name"), format(channels.FormatKML), boolean("zoom")),
			typed: typed[FeaturePlot](),
		},
		{
			channel:   channels.MapFeaturePlotURL,
			overlayID: true,
			fills:     append([]fill{defaultValue("format", channels.FormatKML)}, plotDefaults...),
			checks: featureChecks(
				required("url"), optionalString("name"), format(channels.FormatKML, channels.FormatWMS),
				object("params", false), boolean("zoom")),
			typed: typed[FeaturePlotURL](),
		},
		{
			channel:   channels.MapFeaturePlotMarker,
			overlayID: true,
			fills:     plotDefaults,
			checks: featureChecks(
				optionalString("name"), object("marker", true), boolean("zoom")),
			typed: typed[FeaturePlotMarker](),
		},
		{channel: channels.MapFeatureUnplot, overlayID: true, checks: featureRef},
		{channel: channels.MapFeatureHide, overlayID: true, checks: featureRef},
		{
			channel:   channels.MapFeatureShow,
			overlayID: true,
			fills:     []fill{defaultValue("zoom", false)},
			checks:    featureChecks(boolean("zoom")),
		},
		{
			channel:   channels.MapFeatureSelected,
			overlayID: true,
			checks: featureChecks(
				optionalString("selectedId"), optionalString("selectedName")),
		},
		{
			channel:   channels.MapFeatureDeselected,
			overlayID: true,
			checks: featureChecks(
				optionalString("selectedId"), optionalString("selectedName")),
		},
		{
			channel:   channels.MapFeatureUpdate,
			overlayID: true,
			checks: featureChecks(
				optionalString("name"), optionalString("newOverlayId")),
		},

		{
			channel: channels.MapViewZoom,
			checks:  []check{number("range")},
			typed:   typed[ViewZoom](),
		},
		{
			channel:   channels.MapViewCenterOverlay,
			overlayID: true,
			checks:    []check{required("overlayId"), zoom},
		},
		{
			channel:   channels.MapViewCenterFeature,
			overlayID: true,
			checks:    []check{required("overlayId"), required("featureId"), zoom},
		},
		{
			channel: channels.MapViewCenterLocation,
			checks:  []check{object("location", false), zoom},
			typed:   typed[ViewCenterLocation](),
		},
		{
			channel: channels.MapViewCenterBounds,
			checks:  []check{object("bounds", false), zoom},
			typed:   typed[ViewCenterBounds](),
		},
		{
			channel: channels.MapViewClicked,
			fills: []fill{
				defaultValue("button", "left"),
				defaultValue("type", "single"),
				defaultValue("keys", []any{}),
			},
			checks: []check{number("lat"), number("lon"), optionalString("button"), optionalString("type"), stringList("keys")},
			typed:  typed[ViewClicked](),
		},

		{
			channel: channels.MapStatusRequest,
			fills:   []fill{defaultList("types", []any{StatusTypeView, StatusTypeFormat, StatusTypeAbout})},
			checks:  []check{stringList("types")},
			typed:   typed[StatusRequest](),
		},
		{
			channel: channels.MapStatusView,
			checks:  []check{optionalString("requester"), object("bounds", false), object("center", false), number("range")},
			typed:   typed[StatusView](),
		},
		{
			channel: channels.MapStatusFormat,
			fills:   []fill{defaultValue("formats", []any{channels.FormatKML, channels.FormatWMS})},
			checks:  []check{stringList("formats")},
			typed:   typed[StatusFormat](),
		},
		{
			channel: channels.MapStatusAbout,
			checks:  []check{optionalString("version"), optionalString("type"), optionalString("widgetName")},
			typed:   typed[StatusAbout](),
		},
	}

	out := make(map[string]*rule, len(list))
	for _, r := range list {
		out[r.channel] = r
	}
	return out
}
