// Package diagram holds the layout-side state of a Petri-net diagram.
//
// A [State] owns two entity indexes, one for nodes (places and
// transitions) and one for links (arcs). Each index is a [Table]: a
// compact backing slice in render order plus a map from external id to
// slot number. Consumers that address entities by slot can rely on
//
//	t.Slot(t.Index(id)) is the entity with that id
//
// after every Upsert and Remove. Removal splices the slice and shifts
// every later slot down by one, so there are never gaps.
//
// Links hold live pointers to their endpoint nodes. Moving a node is
// immediately visible through every link that references it. Removing a
// node does not remove its links: a link whose endpoint is no longer in
// the node table is detached, and [State.Detached] reports it so that
// layout, anchoring and rendering can skip it until the model removes or
// re-targets the arc.
//
// State has no internal locking. It is owned by a single goroutine (see
// package engine).
package diagram
