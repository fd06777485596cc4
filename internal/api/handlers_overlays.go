// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cmwapi/internal/overlay"
)

// OverlayTree is the body of GET /api/v1/overlays.
type OverlayTree struct {
	Overlays     []*overlay.TreeNode `json:"overlays"`
	OverlayCount int                 `json:"overlay_count"`
	FeatureCount int                 `json:"feature_count"`
}

// OverlayDetail is the body of GET /api/v1/overlays/{overlayId}.
type OverlayDetail struct {
	overlay.Overlay
	Features []overlay.Feature `json:"features"`
}

// Overlays returns the current overlay tree.
func (h *Handler) Overlays(w http.ResponseWriter, r *http.Request) {
	tree := h.manager.GetOverlayTree()
	if tree == nil {
		tree = []*overlay.TreeNode{}
	}
	overlays, features := h.manager.Counts()
	NewResponseWriter(w, r).Success(OverlayTree{
		Overlays:     tree,
		OverlayCount: overlays,
		FeatureCount: features,
	})
}

// OverlayByID returns one overlay with its features in plot order.
func (h *Handler) OverlayByID(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "overlayId")

	o, ok := h.manager.Overlay(id)
	if !ok {
		rw.NotFound("overlay not found: " + id)
		return
	}

	detail := OverlayDetail{Overlay: o, Features: []overlay.Feature{}}
	for _, node := range h.manager.GetOverlayTree() {
		if n := findOverlayNode(node, id); n != nil {
			for _, child := range n.Children {
				if child.Type != overlay.NodeFeature {
					continue
				}
				if f, ok := h.manager.Feature(id, child.ID); ok {
					detail.Features = append(detail.Features, f)
				}
			}
			break
		}
	}
	rw.Success(detail)
}

func findOverlayNode(node *overlay.TreeNode, id string) *overlay.TreeNode {
	if node.Type != overlay.NodeOverlay {
		return nil
	}
	if node.ID == id {
		return node
	}
	for _, child := range node.Children {
		if found := findOverlayNode(child, id); found != nil {
			return found
		}
	}
	return nil
}
