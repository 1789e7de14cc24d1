package shape

import (
	"fmt"
	"strings"
)

// Orientation selects which rectangle transitions are drawn with.
type Orientation int

const (
	// Horizontal transitions are wide, flat bars.
	Horizontal Orientation = iota
	// Vertical transitions are tall, narrow bars.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseOrientation parses "horizontal" or "vertical" (case-insensitive).
// An empty string selects [Horizontal].
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "horizontal":
		return Horizontal, nil
	case "vertical", "tall":
		return Vertical, nil
	}
	return Horizontal, fmt.Errorf("unknown transition orientation %q", s)
}

// Options sizes the catalog.
type Options struct {
	// Size is the base size. Rectangles span 2*Size by Size/2 and place
	// circles have radius Size/2.
	Size float64
	// HighlightedSize is the base size of highlighted rectangles.
	// Highlighted circles have radius Size/1.2.
	HighlightedSize float64
	// Transition picks the rectangle used for transitions.
	Transition Orientation
}

// DefaultOptions returns the stock sizes: 30 and 40.
func DefaultOptions() Options {
	return Options{Size: 30, HighlightedSize: 40, Transition: Horizontal}
}

// Registry maps each [Kind] to its descriptor.
type Registry struct {
	shapes     map[Kind]*Descriptor
	transition Orientation
}

// NewRegistry builds a catalog. Non-positive sizes fall back to the
// defaults.
func NewRegistry(opts Options) *Registry {
	def := DefaultOptions()
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.HighlightedSize <= 0 {
		opts.HighlightedSize = def.HighlightedSize
	}
	s, hs := opts.Size, opts.HighlightedSize
	return &Registry{
		transition: opts.Transition,
		shapes: map[Kind]*Descriptor{
			KindRect:                    newRect(KindRect, 2*s, s/2),
			KindRectHighlighted:         newRect(KindRectHighlighted, 2*hs, hs/2),
			KindVerticalRect:            newRect(KindVerticalRect, s/2, 2*s),
			KindVerticalRectHighlighted: newRect(KindVerticalRectHighlighted, hs/2, 2*hs),
			KindCircle:                  newCircle(KindCircle, s/2),
			KindCircleHighlighted:       newCircle(KindCircleHighlighted, s/1.2),
		},
	}
}

var defaultRegistry = NewRegistry(DefaultOptions())

// Default returns the registry built from [DefaultOptions].
func Default() *Registry { return defaultRegistry }

// Get returns the descriptor for k, or nil for an unknown kind.
func (r *Registry) Get(k Kind) *Descriptor { return r.shapes[k] }

// Select returns the shape for a node: circles for places, the configured
// rectangle for transitions, highlighted variants when highlighted.
func (r *Registry) Select(transition, highlighted bool) *Descriptor {
	var k Kind
	switch {
	case !transition && highlighted:
		k = KindCircleHighlighted
	case !transition:
		k = KindCircle
	case r.transition == Vertical && highlighted:
		k = KindVerticalRectHighlighted
	case r.transition == Vertical:
		k = KindVerticalRect
	case highlighted:
		k = KindRectHighlighted
	default:
		k = KindRect
	}
	return r.shapes[k]
}
