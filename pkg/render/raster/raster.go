// Package raster draws diagram frames as PNG images.
//
// Drawing uses [github.com/fogleman/gg] with the embedded Go Mono font,
// so no system fonts or external converters are needed.
//
//	err := raster.WritePNG("net.png", frame, raster.Options{Scale: 2})
package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/matzehuels/petrisync/pkg/render"
)

// Options configures rasterization.
type Options struct {
	// Scale multiplies every dimension. Defaults to 1.
	Scale float64
	// Margin pads the fitted bounds. Defaults to 20.
	Margin float64
	// FontSize is the label size in points. Defaults to 10.
	FontSize float64
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Margin <= 0 {
		o.Margin = 20
	}
	if o.FontSize <= 0 {
		o.FontSize = 10
	}
	return o
}

var (
	black     = color.Black
	selection = color.RGBA{0x1f, 0x6f, 0xeb, 0xff}
	band      = color.RGBA{0x88, 0x88, 0x88, 0xff}
)

// fills maps frame fill names to colors.
var fills = map[string]color.Color{
	render.FillPlain:       color.RGBA{0xcc, 0xcc, 0xcc, 0xff},
	render.FillHighlighted: color.RGBA{0xff, 0xd7, 0x00, 0xff},
}

// Render draws the frame fitted to its bounds.
func Render(f *render.Frame, opts Options) (image.Image, error) {
	opts = opts.withDefaults()
	lo, hi := f.Bounds()
	w := (hi.X - lo.X + 2*opts.Margin) * opts.Scale
	h := (hi.Y - lo.Y + 2*opts.Margin) * opts.Scale
	if len(f.Nodes) == 0 {
		w, h = 2*opts.Margin*opts.Scale, 2*opts.Margin*opts.Scale
	}

	dc := gg.NewContext(int(math.Ceil(w)), int(math.Ceil(h)))
	dc.SetColor(color.White)
	dc.Clear()

	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{
		Size:    opts.FontSize * opts.Scale,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	tx := func(x float64) float64 { return (x - lo.X + opts.Margin) * opts.Scale }
	ty := func(y float64) float64 { return (y - lo.Y + opts.Margin) * opts.Scale }

	// Links first so nodes cover their ends.
	dc.SetLineWidth(opts.Scale)
	for _, l := range f.Links {
		drawLink(dc, tx(l.X1), ty(l.Y1), tx(l.X2), ty(l.Y2), l, opts.Scale)
	}
	if f.Band != nil {
		dc.SetColor(band)
		dc.SetDash(4*opts.Scale, 2*opts.Scale)
		dc.DrawLine(tx(f.Band.From.X), ty(f.Band.From.Y), tx(f.Band.To.X), ty(f.Band.To.Y))
		dc.Stroke()
		dc.SetDash()
	}
	for _, n := range f.Nodes {
		drawNode(dc, tx(n.X), ty(n.Y), n, opts.Scale)
	}
	return dc.Image(), nil
}

// Encode writes the frame as PNG to w.
func Encode(w io.Writer, f *render.Frame, opts Options) error {
	img, err := Render(f, opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

// WritePNG writes the frame as PNG to path.
func WritePNG(path string, f *render.Frame, opts Options) error {
	img, err := Render(f, opts)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}

func drawNode(dc *gg.Context, x, y float64, n render.NodeView, scale float64) {
	w, h := n.Width*scale, n.Height*scale
	if n.Circle {
		dc.DrawCircle(x, y, w/2)
	} else {
		dc.DrawRectangle(x-w/2, y-h/2, w, h)
	}
	fill, ok := fills[n.Fill]
	if !ok {
		fill = fills[render.FillPlain]
	}
	dc.SetColor(fill)
	dc.FillPreserve()
	var stroke color.Color = black
	dc.SetLineWidth(scale)
	if n.Selected {
		stroke = selection
		dc.SetLineWidth(2 * scale)
	}
	if n.Provisional {
		dc.SetDash(3*scale, 2*scale)
	}
	dc.SetColor(stroke)
	dc.Stroke()
	dc.SetDash()
	dc.SetLineWidth(scale)

	if n.Token {
		dc.SetColor(black)
		dc.DrawCircle(x, y, n.TokenRadius*scale)
		dc.Fill()
	}
	if n.Name != "" {
		dc.SetColor(black)
		dc.DrawStringAnchored(n.Name, x+n.LabelDX*scale, y, 0, 0.35)
	}
}

func drawLink(dc *gg.Context, x1, y1, x2, y2 float64, l render.LinkView, scale float64) {
	dc.SetColor(black)
	if l.Provisional {
		dc.SetDash(3*scale, 2*scale)
	}
	dc.DrawLine(x1, y1, x2, y2)
	dc.Stroke()
	dc.SetDash()
	drawMarker(dc, x1, y1, x2, y2, l.Marker, 6*scale)
	if l.Label != "" {
		dc.DrawStringAnchored(l.Label, (x1+x2)/2, (y1+y2)/2, 0.5, -0.2)
	}
}

// drawMarker draws the arrow head at (x2,y2) pointing away from (x1,y1).
func drawMarker(dc *gg.Context, x1, y1, x2, y2 float64, kind string, size float64) {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx, dy = dx/length, dy/length
	switch kind {
	case render.MarkerResolved:
		dc.DrawCircle(x2-dx*size/2, y2-dy*size/2, size/2)
	case render.MarkerSuit:
		mx, my := x2-dx*size, y2-dy*size
		dc.MoveTo(x2, y2)
		dc.LineTo(mx+dy*size/2, my-dx*size/2)
		dc.LineTo(x2-2*dx*size, y2-2*dy*size)
		dc.LineTo(mx-dy*size/2, my+dx*size/2)
		dc.ClosePath()
	default:
		const spread = 0.5
		dc.MoveTo(x2, y2)
		dc.LineTo(x2-size*dx+size*dy*spread, y2-size*dy-size*dx*spread)
		dc.LineTo(x2-size*dx-size*dy*spread, y2-size*dy+size*dx*spread)
		dc.ClosePath()
	}
	dc.Fill()
}
