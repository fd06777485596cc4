// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package channels

// Feature formats.
const (
	FormatKML    = "kml"
	FormatKMLURL = "kml-url"
	FormatWMS    = "wms"
	FormatWMSURL = "wms-url"
	FormatMarker = "marker"
)

// Formats lists every feature format the tree can hold, legacy aliases included.
var Formats = []string{FormatKML, FormatKMLURL, FormatWMS, FormatWMSURL, FormatMarker}

// IsFormat reports whether f is one of Formats.
func IsFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// BaseFormat maps the legacy url aliases to their base format.
// kml-url -> kml, wms-url -> wms; other values are returned unchanged.
func BaseFormat(f string) string {
	switch f {
	case FormatKMLURL:
		return FormatKML
	case FormatWMSURL:
		return FormatWMS
	default:
		return f
	}
}
