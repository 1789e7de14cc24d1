// Package shape is the static catalog of node shapes.
//
// Every [Descriptor] carries an SVG path descriptor centered on the origin
// and an ordered table of named anchors: attachment points on the shape's
// perimeter expressed as offsets from its center. Places are drawn as
// circles and transitions as rectangles (horizontal by default, or "tall"
// when the registry is configured with [Vertical]). Highlighted variants
// are separate descriptors whose anchors are scaled with the shape.
//
// # Anchor order
//
// Anchors are always enumerated in [Order]:
//
//	north, east, south, west, northeast, southeast, southwest, northwest
//
// Consumers that pick "the first best anchor" (see package anchor) rely on
// this order for deterministic tie-breaking.
//
// # Concurrency
//
// Descriptors and registries are immutable after construction and safe
// for concurrent use.
package shape
