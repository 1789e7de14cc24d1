// Package anchor picks the attachment point of each arc on its target
// shape.
//
// For an unlocked link the anchor is the one whose absolute position
// (target center plus offset) is closest to the source node's center.
// Anchors are scanned in [shape.Order] (N, E, S, W, NE, SE, SW, NW) and
// only a strictly smaller distance replaces the current best, so exact
// ties go to the anchor listed first.
//
// A locked link with a non-empty anchor name keeps that name; only its
// offset follows the target's current shape.
package anchor

import (
	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/shape"
)

// Nearest returns the anchor of d, placed at center, that is closest to
// source. It returns the zero value when d has no anchors.
func Nearest(d *shape.Descriptor, center, source geom.Point) (shape.AnchorName, geom.Point) {
	var (
		best   shape.AnchorName
		offset geom.Point
		min    float64
		found  bool
	)
	for _, a := range d.Anchors() {
		dist := geom.Dist(source, center.Add(a.Offset))
		if !found || dist < min {
			best, offset, min, found = a.Name, a.Offset, dist, true
		}
	}
	return best, offset
}

// Resolve computes the offset and anchor name for l without modifying it.
// A locked link whose anchor is missing from the target shape keeps its
// name and resolves to the target's center.
func Resolve(l *diagram.Link) (geom.Point, shape.AnchorName) {
	d := l.Target.Shape
	if d == nil {
		return geom.Point{}, l.Anchor
	}
	if l.Locked && l.Anchor != "" {
		off, _ := d.Anchor(l.Anchor)
		return off, l.Anchor
	}
	name, off := Nearest(d, l.Target.Position, l.Source.Position)
	return off, name
}

// Apply resolves l and records the offset and the chosen anchor on it.
func Apply(l *diagram.Link) {
	l.Offset, l.Anchor = Resolve(l)
}

// ResolveAll applies every attached link of s. It must run after all
// node positions of the current tick have been integrated.
func ResolveAll(s *diagram.State) {
	for _, l := range s.Links.Items() {
		if s.Detached(l) {
			continue
		}
		Apply(l)
	}
}

// Lock fixes l to its current anchor. When no anchor was resolved yet,
// it resolves one first.
func Lock(l *diagram.Link) {
	if l.Anchor == "" {
		Apply(l)
	}
	l.Locked = true
}
