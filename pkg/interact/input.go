package interact

import (
	"fmt"
	"strings"

	"github.com/matzehuels/petrisync/pkg/geom"
)

// Button identifies the pointer button of an event.
type Button int

// Pointer buttons.
const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	case ButtonMiddle:
		return "middle"
	}
	return "none"
}

// Modifiers is a set of held keyboard modifiers.
type Modifiers uint8

// Keyboard modifiers.
const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
)

// Has reports whether all of m are held.
func (mods Modifiers) Has(m Modifiers) bool { return mods&m == m }

// Pointer is one pointer event in canvas coordinates.
type Pointer struct {
	Pos    geom.Point
	Button Button
	Mods   Modifiers
}

// At returns a primary-button pointer at p.
func At(p geom.Point) Pointer { return Pointer{Pos: p, Button: ButtonPrimary} }

// DragTrigger selects which press starts a node drag instead of an arc.
type DragTrigger int

// Drag triggers.
const (
	// DragSecondary drags with the secondary (right) button.
	DragSecondary DragTrigger = iota
	// DragMiddle drags with the middle button.
	DragMiddle
	// DragShift drags with the primary button while shift is held.
	DragShift
	// DragAlt drags with the primary button while alt is held.
	DragAlt
	// DragCtrl drags with the primary button while ctrl is held.
	DragCtrl
)

var triggerNames = []string{"secondary", "middle", "shift", "alt", "ctrl"}

func (t DragTrigger) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return fmt.Sprintf("DragTrigger(%d)", int(t))
}

// ParseDragTrigger parses a trigger name. "right" is accepted for
// secondary and "" selects the default.
func ParseDragTrigger(s string) (DragTrigger, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "secondary", "right":
		return DragSecondary, nil
	case "middle":
		return DragMiddle, nil
	case "shift":
		return DragShift, nil
	case "alt":
		return DragAlt, nil
	case "ctrl", "control":
		return DragCtrl, nil
	}
	return 0, fmt.Errorf("unknown drag trigger %q (want one of %s)", s, strings.Join(triggerNames, ", "))
}

// Matches reports whether p starts a drag.
func (t DragTrigger) Matches(p Pointer) bool {
	switch t {
	case DragSecondary:
		return p.Button == ButtonSecondary
	case DragMiddle:
		return p.Button == ButtonMiddle
	case DragShift:
		return p.Button == ButtonPrimary && p.Mods.Has(ModShift)
	case DragAlt:
		return p.Button == ButtonPrimary && p.Mods.Has(ModAlt)
	case DragCtrl:
		return p.Button == ButtonPrimary && p.Mods.Has(ModCtrl)
	}
	return false
}
