package shape

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/petrisync/pkg/geom"
)

// AnchorName names an attachment point on a shape's perimeter.
type AnchorName string

// Compass anchors shared by every shape.
const (
	North     AnchorName = "north"
	East      AnchorName = "east"
	South     AnchorName = "south"
	West      AnchorName = "west"
	NorthEast AnchorName = "northeast"
	SouthEast AnchorName = "southeast"
	SouthWest AnchorName = "southwest"
	NorthWest AnchorName = "northwest"
)

// Order is the fixed enumeration order of anchors.
var Order = [...]AnchorName{North, East, South, West, NorthEast, SouthEast, SouthWest, NorthWest}

// Valid reports whether n is one of the compass anchors.
func (n AnchorName) Valid() bool {
	for _, a := range Order {
		if a == n {
			return true
		}
	}
	return false
}

// Anchor is a named offset from a shape's center.
type Anchor struct {
	Name   AnchorName
	Offset geom.Point
}

// Kind identifies a catalog entry.
type Kind int

const (
	KindRect Kind = iota
	KindRectHighlighted
	KindVerticalRect
	KindVerticalRectHighlighted
	KindCircle
	KindCircleHighlighted
)

var kindNames = map[Kind]string{
	KindRect:                    "rect",
	KindRectHighlighted:         "rect_highlighted",
	KindVerticalRect:            "vertical_rect",
	KindVerticalRectHighlighted: "vertical_rect_highlighted",
	KindCircle:                  "circle",
	KindCircleHighlighted:       "circle_highlighted",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Highlighted reports whether k is a highlighted variant.
func (k Kind) Highlighted() bool {
	return k == KindRectHighlighted || k == KindVerticalRectHighlighted || k == KindCircleHighlighted
}

// Descriptor is an immutable shape: path geometry plus anchor table.
type Descriptor struct {
	kind    Kind
	circle  bool
	width   float64
	height  float64
	path    string
	anchors []Anchor
}

// Kind returns the catalog entry this descriptor was built for.
func (d *Descriptor) Kind() Kind { return d.kind }

// Path returns the SVG path descriptor, centered on (0,0).
func (d *Descriptor) Path() string { return d.path }

// Width returns the horizontal extent of the shape.
func (d *Descriptor) Width() float64 { return d.width }

// Height returns the vertical extent of the shape.
func (d *Descriptor) Height() float64 { return d.height }

// IsCircle reports whether the outline is a circle.
func (d *Descriptor) IsCircle() bool { return d.circle }

// Radius returns the circle radius, or half the width for rectangles.
func (d *Descriptor) Radius() float64 { return d.width / 2 }

// Anchors returns the anchor table in [Order]. The slice is shared and
// must not be modified.
func (d *Descriptor) Anchors() []Anchor { return d.anchors }

// Anchor returns the offset of the named anchor.
func (d *Descriptor) Anchor(name AnchorName) (geom.Point, bool) {
	for _, a := range d.anchors {
		if a.Name == name {
			return a.Offset, true
		}
	}
	return geom.Point{}, false
}

// Contains reports whether p, relative to the shape's center, lies inside
// or on the outline.
func (d *Descriptor) Contains(p geom.Point) bool {
	if d.circle {
		r := d.Radius()
		return p.X*p.X+p.Y*p.Y <= r*r
	}
	return math.Abs(p.X) <= d.width/2 && math.Abs(p.Y) <= d.height/2
}

func newRect(kind Kind, w, h float64) *Descriptor {
	hw, hh := w/2, h/2
	offsets := map[AnchorName]geom.Point{
		North:     {X: 0, Y: -hh},
		East:      {X: hw, Y: 0},
		South:     {X: 0, Y: hh},
		West:      {X: -hw, Y: 0},
		NorthEast: {X: hw, Y: -hh},
		SouthEast: {X: hw, Y: hh},
		SouthWest: {X: -hw, Y: hh},
		NorthWest: {X: -hw, Y: -hh},
	}
	return &Descriptor{
		kind:    kind,
		width:   w,
		height:  h,
		path:    fmt.Sprintf("M %s %s h %s v %s h %s z", num(-hw), num(-hh), num(w), num(h), num(-w)),
		anchors: ordered(offsets),
	}
}

// compass angles in degrees, counter-clockwise from east
var compassAngles = map[AnchorName]float64{
	North:     90,
	East:      0,
	South:     270,
	West:      180,
	NorthEast: 45,
	SouthEast: 315,
	SouthWest: 225,
	NorthWest: 135,
}

func newCircle(kind Kind, r float64) *Descriptor {
	offsets := make(map[AnchorName]geom.Point, len(compassAngles))
	for name, deg := range compassAngles {
		rad := deg * math.Pi / 180
		offsets[name] = geom.Point{X: snap(math.Cos(rad) * r), Y: snap(-math.Sin(rad) * r)}
	}
	var path strings.Builder
	fmt.Fprintf(&path, "M 0 0 m %s, 0 ", num(-r))
	fmt.Fprintf(&path, "a %s,%s 0 1,0 %s,0 ", num(r), num(r), num(2*r))
	fmt.Fprintf(&path, "a %s,%s 0 1,0 %s,0", num(r), num(r), num(-2*r))
	return &Descriptor{
		kind:    kind,
		circle:  true,
		width:   2 * r,
		height:  2 * r,
		path:    path.String(),
		anchors: ordered(offsets),
	}
}

func ordered(offsets map[AnchorName]geom.Point) []Anchor {
	out := make([]Anchor, 0, len(Order))
	for _, name := range Order {
		out = append(out, Anchor{Name: name, Offset: offsets[name]})
	}
	return out
}

// snap clears the floating point residue of cos/sin at right angles.
func snap(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
