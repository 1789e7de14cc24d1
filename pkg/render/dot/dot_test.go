package dot

import (
	"strings"
	"testing"

	"github.com/matzehuels/petrisync/pkg/render"
)

func frame() *render.Frame {
	return &render.Frame{
		Nodes: []render.NodeView{
			{ID: "p", Name: "free", Circle: true, Width: 30, Height: 30, X: 72, Y: 144, Fill: render.FillPlain, Pinned: true, Token: true},
			{ID: "t", Name: "enter", Width: 60, Height: 15, X: 0, Y: 0, Fill: render.FillHighlighted, Provisional: true},
		},
		Links: []render.LinkView{
			{ID: "a", Source: "p", Target: "t", Anchor: "southeast", Marker: render.MarkerSuit, Label: "2"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(frame(), Options{})
	for _, want := range []string{
		"layout=neato;",
		`"p" [shape=circle, width=0.4167, height=0.4167, pos="1.0000,-2.0000!"`,
		`fillcolor="gold"`,
		`xlabel="free •"`,
		`style="filled,dashed"`,
		`"p" -> "t" [arrowhead=diamond, headport=se, label="2"]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
}

func TestToDOTUnpinned(t *testing.T) {
	dot := ToDOT(frame(), Options{Unpinned: true, Detailed: true})
	if !strings.Contains(dot, `pos="0.0000,0.0000"`) {
		t.Errorf("unpinned node should not carry '!':\n%s", dot)
	}
	if !strings.Contains(dot, `pos="1.0000,-2.0000!"`) {
		t.Error("pinned node lost its pin")
	}
	if !strings.Contains(dot, `p\npinned`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("got %s", out)
	}
}
