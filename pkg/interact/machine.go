// Package interact turns pointer events into diagram edits.
//
// A [Machine] has four states:
//
//	Idle --press(node)--> NodeArmed --move past dead zone--> DrawingLink
//	Idle --press(node, drag trigger)--> Dragging
//
// Releasing an armed node on itself is a click and toggles its selection.
// Releasing on another node, or while drawing, creates a provisional
// link; releasing over empty canvas creates a provisional node of the
// opposite kind plus a link to it. A double press deselects.
//
// Selection goes through [Host.Select] so the model sees it. Provisional
// entities are inserted straight into the [diagram.State] with a local id
// and are reported to the caller, which must reconcile or discard them.
package interact

import (
	"github.com/google/uuid"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/shape"
)

// State is the current interaction state.
type State int

// Interaction states.
const (
	Idle State = iota
	NodeArmed
	DrawingLink
	Dragging
)

func (s State) String() string {
	switch s {
	case NodeArmed:
		return "armed"
	case DrawingLink:
		return "drawing"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// LocalPrefix starts the id of every provisional entity.
const LocalPrefix = "local-"

// Host is what the machine needs from the editor around it.
type Host interface {
	// HitTest returns the topmost node under p.
	HitTest(p geom.Point) (*diagram.Node, bool)
	// Select writes the selection through the model and mirrors it on n.
	Select(n *diagram.Node, selected bool) error
	// Refresh re-resolves anchors and renders synchronously.
	Refresh()
	// SuspendLayout stops the simulation for a manual drag.
	SuspendLayout()
	// ResumeLayout restarts the simulation after a drag.
	ResumeLayout()
}

// Options configures a [Machine].
type Options struct {
	Trigger DragTrigger
	// DeadZone is how far an armed pointer may travel before it starts
	// drawing a link.
	DeadZone float64
	Shapes   *shape.Registry
	// NewID returns ids for provisional entities. Defaults to LocalPrefix
	// followed by a random UUID.
	NewID func() string
}

// Provisional holds the entities created by one release. Node is nil when
// only a link was created; both are nil when nothing was created.
type Provisional struct {
	Node *diagram.Node
	Link *diagram.Link
}

// Empty reports whether nothing was created.
func (p Provisional) Empty() bool { return p.Node == nil && p.Link == nil }

// Machine is the interaction state machine. It is not safe for
// concurrent use.
type Machine struct {
	diagram *diagram.State
	host    Host
	opts    Options

	state   State
	pressed *diagram.Node
	pressAt geom.Point
	pointer geom.Point
	grab    geom.Point
}

// New returns an idle machine.
func New(d *diagram.State, host Host, opts Options) *Machine {
	if opts.Shapes == nil {
		opts.Shapes = shape.Default()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return LocalPrefix + uuid.NewString() }
	}
	if opts.DeadZone < 0 {
		opts.DeadZone = 0
	}
	return &Machine{diagram: d, host: host, opts: opts}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Pressed returns the node the current gesture started on.
func (m *Machine) Pressed() *diagram.Node { return m.pressed }

// Trigger returns the configured drag trigger.
func (m *Machine) Trigger() DragTrigger { return m.opts.Trigger }

// Band returns the rubber-band segment while a link is being drawn.
func (m *Machine) Band() (from, to geom.Point, ok bool) {
	if m.state != DrawingLink || !m.diagram.Live(m.pressed) {
		return geom.Point{}, geom.Point{}, false
	}
	return m.pressed.Position, m.pointer, true
}

// Press starts a gesture. A press while another gesture is in progress
// cancels that gesture first.
func (m *Machine) Press(p Pointer) {
	if m.state != Idle {
		m.Cancel()
	}
	m.pointer = p.Pos
	m.pressed = nil

	n, ok := m.host.HitTest(p.Pos)
	if !ok {
		return
	}
	m.pressed = n
	m.pressAt = p.Pos
	if m.opts.Trigger.Matches(p) {
		m.state = Dragging
		m.grab = n.Position.Sub(p.Pos)
		m.host.SuspendLayout()
		return
	}
	m.state = NodeArmed
}

// Move tracks the pointer.
func (m *Machine) Move(p Pointer) {
	m.pointer = p.Pos
	switch m.state {
	case NodeArmed:
		if geom.Dist(p.Pos, m.pressAt) > m.opts.DeadZone {
			m.state = DrawingLink
			m.host.Refresh()
		}
	case DrawingLink:
		m.host.Refresh()
	case Dragging:
		if !m.diagram.Live(m.pressed) {
			m.Cancel()
			return
		}
		m.pressed.Position = p.Pos.Add(m.grab)
		m.pressed.Velocity = geom.Point{}
		m.pressed.Pinned = true
		m.host.Refresh()
	}
}

// Release ends a gesture and returns any provisional entities it created.
// The error comes from writing a selection back to the model.
func (m *Machine) Release(p Pointer) (Provisional, error) {
	m.pointer = p.Pos
	state, pressed := m.state, m.pressed
	m.state, m.pressed = Idle, nil

	switch state {
	case Dragging:
		if m.diagram.Live(pressed) {
			pressed.Position = p.Pos.Add(m.grab)
			pressed.Velocity = geom.Point{}
			pressed.Pinned = true
		}
		m.host.ResumeLayout()
		m.host.Refresh()
		return Provisional{}, nil
	case NodeArmed, DrawingLink:
	default:
		return Provisional{}, nil
	}

	if !m.diagram.Live(pressed) {
		m.host.Refresh()
		return Provisional{}, nil
	}

	target, hit := m.host.HitTest(p.Pos)
	var (
		out Provisional
		err error
	)
	switch {
	case hit && target == pressed && state == NodeArmed:
		err = m.host.Select(pressed, !pressed.Selected)
	case hit && target == pressed:
		// dragged back onto the start node: abandon the link
	case hit:
		out.Link = m.newLink(pressed, target)
	default:
		out.Node = m.newNode(pressed.Kind.Opposite(), p.Pos)
		out.Link = m.newLink(pressed, out.Node)
	}
	m.host.Refresh()
	return out, err
}

// DoublePress deselects the node under the pointer.
func (m *Machine) DoublePress(p Pointer) error {
	if m.state == Dragging {
		m.host.ResumeLayout()
	}
	m.state, m.pressed = Idle, nil
	m.pointer = p.Pos

	n, ok := m.host.HitTest(p.Pos)
	if !ok {
		return nil
	}
	err := m.host.Select(n, false)
	m.host.Refresh()
	return err
}

// Cancel abandons the current gesture. A dragged node stays where it is
// and is pinned there.
func (m *Machine) Cancel() {
	if m.state == Idle {
		return
	}
	if m.state == Dragging {
		if m.diagram.Live(m.pressed) {
			m.pressed.Pinned = true
		}
		m.host.ResumeLayout()
	}
	m.state, m.pressed = Idle, nil
	m.host.Refresh()
}

func (m *Machine) newNode(kind diagram.Kind, at geom.Point) *diagram.Node {
	id := m.opts.NewID()
	n, _ := m.diagram.Nodes.Upsert(id, func() *diagram.Node {
		return &diagram.Node{
			ID:          id,
			Kind:        kind,
			Shape:       m.opts.Shapes.Select(kind == diagram.Transition, false),
			Position:    at,
			Pinned:      true,
			Provisional: true,
		}
	})
	return n
}

func (m *Machine) newLink(from, to *diagram.Node) *diagram.Link {
	id := m.opts.NewID()
	l, _ := m.diagram.Links.Upsert(id, func() *diagram.Link {
		return &diagram.Link{
			ID:          id,
			Source:      from,
			Target:      to,
			Kind:        model.DefaultArcKind,
			Provisional: true,
		}
	})
	return l
}
