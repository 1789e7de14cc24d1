// Package render derives drawable views from a diagram.
//
// # Frames
//
// [Capture] turns a [diagram.State] into a [Frame]: plain values with the
// visual attributes the renderers need (fill, token visibility, label
// offset, arc marker, anchored endpoints). Renderers only ever see
// frames, so they cannot mutate the diagram. Detached links are left
// out.
//
// # Outputs
//
// This package writes frames as SVG using the shape path descriptors
// directly:
//
//	frame := render.Capture(state)
//	svg := render.SVG(frame, render.WithSize(960, 500))
//
// Sub-packages cover the other outputs:
//
//   - [dot]: Graphviz DOT export and Graphviz SVG rendering
//   - [raster]: PNG rasterization
//
// [dot]: github.com/matzehuels/petrisync/pkg/render/dot
// [raster]: github.com/matzehuels/petrisync/pkg/render/raster
package render
