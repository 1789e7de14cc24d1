package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const markerSize = 8

// SVGOption configures [SVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width, height float64
	fit           bool
	margin        float64
}

// WithSize fixes the canvas size. Without it the view box is fitted to
// the frame's bounds.
func WithSize(w, h float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height, r.fit = w, h, false }
}

// WithMargin sets the padding used when fitting the view box.
func WithMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// SVG writes the frame as a standalone SVG document.
func SVG(f *Frame, opts ...SVGOption) []byte {
	r := svgRenderer{fit: true, margin: 20}
	for _, o := range opts {
		o(&r)
	}

	var x0, y0, w, h float64
	if r.fit {
		lo, hi := f.Bounds()
		x0, y0 = lo.X-r.margin, lo.Y-r.margin
		w, h = hi.X-lo.X+2*r.margin, hi.Y-lo.Y+2*r.margin
	} else {
		w, h = r.width, r.height
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		x0, y0, w, h, w, h)
	renderDefs(&buf)
	for _, l := range f.Links {
		renderLink(&buf, l)
	}
	if f.Band != nil {
		fmt.Fprintf(&buf, `  <path class="band" d="M %.2f %.2f L %.2f %.2f" stroke="#888" stroke-dasharray="4 2" fill="none"/>`+"\n",
			f.Band.From.X, f.Band.From.Y, f.Band.To.X, f.Band.To.Y)
	}
	for _, n := range f.Nodes {
		renderNode(&buf, n)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// One marker per arc kind, since markers do not inherit styles.
func renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	for _, kind := range []string{MarkerSuit, MarkerLicensing, MarkerResolved} {
		fmt.Fprintf(buf, `    <marker id="%s" viewBox="0 -5 10 10" refX="%d" markerWidth="%d" markerHeight="%d" orient="auto">`,
			kind, markerSize+2, markerSize, markerSize)
		buf.WriteString(`<path d="M0,-5L10,0L0,5"/></marker>` + "\n")
	}
	buf.WriteString("  </defs>\n")
}

func renderLink(buf *bytes.Buffer, l LinkView) {
	class := "link " + l.Marker
	if l.Provisional {
		class += " provisional"
	}
	fmt.Fprintf(buf, `  <path id="link-%s" class="%s" d="M %.2f %.2f L %.2f %.2f" stroke="#000" fill="none" marker-end="url(#%s)"/>`+"\n",
		escapeXML(l.ID), class, l.X1, l.Y1, l.X2, l.Y2, l.Marker)
	if l.Label != "" {
		fmt.Fprintf(buf, `  <text x="%.2f" y="%.2f" font-size="10">%s</text>`+"\n",
			(l.X1+l.X2)/2, (l.Y1+l.Y2)/2, escapeXML(l.Label))
	}
}

func renderNode(buf *bytes.Buffer, n NodeView) {
	stroke := "#000"
	if n.Selected {
		stroke = "#1f6feb"
	}
	fmt.Fprintf(buf, `  <g id="node-%s" class="node %s" transform="translate(%.2f,%.2f)">`+"\n",
		escapeXML(n.ID), n.Kind, n.X, n.Y)
	fmt.Fprintf(buf, `    <path d="%s" fill="%s" stroke="%s"/>`+"\n", n.Path, n.Fill, stroke)
	visibility := "hidden"
	if n.Token {
		visibility = "visible"
	}
	fmt.Fprintf(buf, `    <circle class="token" r="%.2f" fill="black" visibility="%s"/>`+"\n", n.TokenRadius, visibility)
	if n.Name != "" {
		fmt.Fprintf(buf, `    <text x="%.0f" y=".45em" font-size="10">%s</text>`+"\n", n.LabelDX, escapeXML(n.Name))
	}
	buf.WriteString("  </g>\n")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
