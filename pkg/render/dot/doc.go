// Package dot exports diagram frames as Graphviz DOT and renders them.
//
// # Overview
//
// [ToDOT] writes a frame as an undirected-looking digraph laid out by
// neato, with every node pinned at its canvas position (converted to
// inches, y axis flipped). Places become circles, transitions boxes, and
// each arc enters its target through the compass port of its resolved
// anchor, so the Graphviz output attaches arcs where the editor does.
//
//	dot := dot.ToDOT(frame, dot.Options{})
//	svg, err := dot.RenderSVG(ctx, dot)
//
// The DOT text can also be saved and processed with external Graphviz
// tools.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package dot
