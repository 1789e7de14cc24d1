package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/petrisync/pkg/render"
	"github.com/matzehuels/petrisync/pkg/shape"
)

// pointsPerInch converts canvas units (points) to Graphviz inches.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Detailed adds ids and pin state to node labels.
	Detailed bool
	// Unpinned lets neato move nodes that are not pinned in the editor.
	Unpinned bool
}

var ports = map[string]string{
	string(shape.North):     "n",
	string(shape.East):      "e",
	string(shape.South):     "s",
	string(shape.West):      "w",
	string(shape.NorthEast): "ne",
	string(shape.SouthEast): "se",
	string(shape.SouthWest): "sw",
	string(shape.NorthWest): "nw",
}

var arrowheads = map[string]string{
	render.MarkerSuit:      "diamond",
	render.MarkerLicensing: "normal",
	render.MarkerResolved:  "dot",
}

// ToDOT converts a frame to Graphviz DOT.
func ToDOT(f *render.Frame, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fixedsize=true, fontsize=10, label=\"\"];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	buf.WriteString("\n")

	for _, n := range f.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, l := range f.Links {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.Source, l.Target, strings.Join(linkAttrs(l), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n render.NodeView, opts Options) []string {
	shapeName := "box"
	if n.Circle {
		shapeName = "circle"
	}
	pin := "!"
	if opts.Unpinned && !n.Pinned {
		pin = ""
	}
	attrs := []string{
		"shape=" + shapeName,
		fmt.Sprintf("width=%s", inches(n.Width)),
		fmt.Sprintf("height=%s", inches(n.Height)),
		fmt.Sprintf("pos=\"%s,%s%s\"", inches(n.X), inches(0-n.Y), pin),
		fmt.Sprintf("fillcolor=%q", n.Fill),
	}
	if label := fmtLabel(n, opts.Detailed); label != "" {
		attrs = append(attrs, fmt.Sprintf("xlabel=%q", label))
	}
	if n.Selected {
		attrs = append(attrs, "penwidth=2", "color=\"#1f6feb\"")
	}
	if n.Provisional {
		attrs = append(attrs, "style=\"filled,dashed\"")
	}
	return attrs
}

func fmtLabel(n render.NodeView, detailed bool) string {
	label := n.Name
	if n.Token {
		label += " •"
	}
	if !detailed {
		return strings.TrimSpace(label)
	}
	parts := []string{n.ID}
	if n.Pinned {
		parts = append(parts, "pinned")
	}
	return strings.TrimSpace(label + "\n" + strings.Join(parts, "\n"))
}

func linkAttrs(l render.LinkView) []string {
	attrs := []string{"arrowhead=" + arrowheads[l.Marker]}
	if port, ok := ports[l.Anchor]; ok {
		attrs = append(attrs, "headport="+port)
	}
	if l.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", l.Label))
	}
	if l.Provisional {
		attrs = append(attrs, "style=dashed")
	}
	return attrs
}

func inches(v float64) string {
	return strconv.FormatFloat(v/pointsPerInch, 'f', 4, 64)
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
