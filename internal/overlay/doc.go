// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

/*
Package overlay holds a map widget's overlay/feature tree.

A Manager owns the tree for one widget session. Overlays are hideable
groups that may nest; features are rendered artifacts (KML, WMS, markers)
owned by one overlay. The Manager keeps the engine handle of every rendered
feature and pushes visibility changes to the Renderer: a feature is visible
only when it and every ancestor overlay are shown.

# Parents

An overlay may name a parent that does not exist yet. It is a root until
the parent appears, and is then resolved lazily by GetOverlayTree. A parent
that would create a cycle is rejected with ErrCycle and the tree is left as
it was. Removing an overlay moves its children up to its own parent.

# Observers

BindTreeChangeHandler registers callbacks that run synchronously, in
registration order, after every successful mutation and outside the
Manager's lock.

# Persistence

ArchiveState, RetrieveState and DeleteState talk to a Preferences store and
return a channel that delivers exactly one result. Nothing waits on them;
the live tree keeps accepting commands while a round trip is in flight and
the last write wins.

	prefs, err := overlay.OpenBadgerPreferences(overlay.BadgerConfig{Path: "/data/prefs"})
	m := overlay.NewManager(renderer,
	    overlay.WithPreferences(prefs, "", ""),
	    overlay.WithReporter(api.Error, api.Identity()),
	)
	if err := <-m.RetrieveState(ctx); err != nil { ... }
*/
package overlay
