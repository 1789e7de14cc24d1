package render

import (
	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/model"
)

// Fill colors.
const (
	FillPlain       = "#ccc"
	FillHighlighted = "gold"
)

// Label offsets to the right of the node center.
const (
	LabelOffsetTransition = 45
	LabelOffsetPlace      = 30
)

// Arc markers.
const (
	MarkerSuit      = "suit"
	MarkerLicensing = "licensing"
	MarkerResolved  = "resolved"
)

// NodeView is the drawable form of a node.
type NodeView struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Path        string  `json:"path"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Circle      bool    `json:"circle"`
	Fill        string  `json:"fill"`
	Token       bool    `json:"token"`
	TokenRadius float64 `json:"token_radius"`
	LabelDX     float64 `json:"label_dx"`
	Selected    bool    `json:"selected"`
	Highlighted bool    `json:"highlighted"`
	Pinned      bool    `json:"pinned"`
	Provisional bool    `json:"provisional,omitempty"`
}

// LinkView is the drawable form of an attached link.
type LinkView struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Anchor      string  `json:"anchor"`
	Locked      bool    `json:"locked"`
	Marker      string  `json:"marker"`
	Label       string  `json:"label,omitempty"`
	Provisional bool    `json:"provisional,omitempty"`
}

// Segment is a straight line, used for the rubber band.
type Segment struct {
	From geom.Point `json:"from"`
	To   geom.Point `json:"to"`
}

// Frame is everything a renderer needs for one refresh.
type Frame struct {
	Nodes []NodeView `json:"nodes"`
	Links []LinkView `json:"links"`
	Band  *Segment   `json:"band,omitempty"`
	// Tick counts layout steps; it is zero for frames outside a run.
	Tick int `json:"tick"`
}

// Capture derives a frame from st in slot order.
func Capture(st *diagram.State) *Frame {
	f := &Frame{
		Nodes: make([]NodeView, 0, st.Nodes.Len()),
		Links: make([]LinkView, 0, st.Links.Len()),
	}
	for _, n := range st.Nodes.Items() {
		f.Nodes = append(f.Nodes, nodeView(n))
	}
	for _, l := range st.Links.Items() {
		if st.Detached(l) {
			continue
		}
		f.Links = append(f.Links, linkView(l))
	}
	return f
}

// Node returns the view of the node with the given id.
func (f *Frame) Node(id string) (NodeView, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}

// Bounds returns the bounding box of every node outline and link.
func (f *Frame) Bounds() (lo, hi geom.Point) {
	first := true
	grow := func(p geom.Point) {
		if first {
			lo, hi, first = p, p, false
			return
		}
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	for _, n := range f.Nodes {
		grow(geom.Pt(n.X-n.Width/2, n.Y-n.Height/2))
		grow(geom.Pt(n.X+n.Width/2+n.LabelDX, n.Y+n.Height/2))
	}
	for _, l := range f.Links {
		grow(geom.Pt(l.X1, l.Y1))
		grow(geom.Pt(l.X2, l.Y2))
	}
	return lo, hi
}

func nodeView(n *diagram.Node) NodeView {
	v := NodeView{
		ID:          n.ID,
		Kind:        n.Kind.String(),
		Name:        n.Name,
		X:           n.Position.X,
		Y:           n.Position.Y,
		Fill:        Fill(n.Highlighted),
		Token:       n.Marking,
		LabelDX:     LabelOffset(n.Kind),
		Selected:    n.Selected,
		Highlighted: n.Highlighted,
		Pinned:      n.Pinned,
		Provisional: n.Provisional,
	}
	if n.Shape != nil {
		v.Path = n.Shape.Path()
		v.Width = n.Shape.Width()
		v.Height = n.Shape.Height()
		v.Circle = n.Shape.IsCircle()
		v.TokenRadius = n.Shape.Radius() / 3
	}
	return v
}

func linkView(l *diagram.Link) LinkView {
	end := l.End()
	return LinkView{
		ID:          l.ID,
		Source:      l.Source.ID,
		Target:      l.Target.ID,
		X1:          l.Source.Position.X,
		Y1:          l.Source.Position.Y,
		X2:          end.X,
		Y2:          end.Y,
		Anchor:      string(l.Anchor),
		Locked:      l.Locked,
		Marker:      Marker(l.Kind),
		Label:       l.Label,
		Provisional: l.Provisional,
	}
}

// Fill returns the node fill color.
func Fill(highlighted bool) string {
	if highlighted {
		return FillHighlighted
	}
	return FillPlain
}

// LabelOffset returns how far right of the center a node's name starts.
func LabelOffset(k diagram.Kind) float64 {
	if k == diagram.Transition {
		return LabelOffsetTransition
	}
	return LabelOffsetPlace
}

// Marker returns the arrow head for an arc kind. Unknown kinds get the
// licensing marker.
func Marker(kind string) string {
	switch kind {
	case MarkerSuit, MarkerResolved:
		return kind
	}
	return model.DefaultArcKind
}
