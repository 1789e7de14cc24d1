package raster

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/render"
)

func frame() *render.Frame {
	return &render.Frame{
		Nodes: []render.NodeView{
			{ID: "p", Name: "free", Circle: true, Width: 30, Height: 30, Fill: render.FillPlain, Token: true, TokenRadius: 5, LabelDX: 30},
			{ID: "t", Name: "enter", Width: 60, Height: 15, Y: 100, Fill: render.FillHighlighted, LabelDX: 45, Selected: true},
		},
		Links: []render.LinkView{
			{ID: "a", X1: 0, Y1: 0, X2: 0, Y2: 92.5, Marker: render.MarkerLicensing},
			{ID: "b", X1: 0, Y1: 100, X2: 0, Y2: 15, Marker: render.MarkerSuit, Provisional: true},
		},
		Band: &render.Segment{From: geom.Pt(0, 0), To: geom.Pt(40, 40)},
	}
}

func TestRenderSize(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
	}{
		{"Default", 0},
		{"Double", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Render(frame(), Options{Scale: tt.scale})
			if err != nil {
				t.Fatal(err)
			}
			scale := tt.scale
			if scale == 0 {
				scale = 1
			}
			// bounds: x -30..75 (label included), plus 20 margin each side
			wantW := int(145 * scale)
			if got := img.Bounds().Dx(); got != wantW {
				t.Errorf("width = %d, want %d", got, wantW)
			}
		})
	}
}

func TestEncodeAndWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, frame(), Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	path := filepath.Join(t.TempDir(), "net.png")
	if err := WritePNG(path, frame(), Options{Scale: 1.5}); err != nil {
		t.Fatal(err)
	}
}

func TestEmptyFrame(t *testing.T) {
	img, err := Render(&render.Frame{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("empty frame width = %d, want 40", img.Bounds().Dx())
	}
}
