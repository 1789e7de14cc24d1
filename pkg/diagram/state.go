package diagram

import (
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/shape"
)

// Kind is the Petri-net kind of a node.
type Kind int

// Node kinds.
const (
	Place Kind = iota
	Transition
)

func (k Kind) String() string {
	if k == Transition {
		return "transition"
	}
	return "place"
}

// Opposite returns the other kind. Arcs in a Petri net always join a
// place and a transition.
func (k Kind) Opposite() Kind {
	if k == Transition {
		return Place
	}
	return Transition
}

// ModelType returns the model entity type for k.
func (k Kind) ModelType() model.Type {
	if k == Transition {
		return model.TypeTransition
	}
	return model.TypePlace
}

// Node is a place or transition as laid out on the canvas.
type Node struct {
	ID          string
	Kind        Kind
	Name        string
	Shape       *shape.Descriptor
	Marking     bool
	Highlighted bool
	Selected    bool
	Position    geom.Point
	Velocity    geom.Point
	Pinned      bool
	// Provisional nodes were created locally and have no model entity yet.
	Provisional bool
	// Ref is the write-back handle to the model entity. It does not own
	// the entity and is nil for provisional nodes.
	Ref model.Handle
}

// Contains reports whether p lies inside the node's shape.
func (n *Node) Contains(p geom.Point) bool {
	if n.Shape == nil {
		return false
	}
	return n.Shape.Contains(p.Sub(n.Position))
}

// Link is an arc between two nodes.
type Link struct {
	ID     string
	Source *Node
	Target *Node
	Anchor shape.AnchorName
	Locked bool
	Kind   string
	Label  string
	// Offset is the resolved anchor offset relative to Target.Position.
	Offset      geom.Point
	Provisional bool
	Ref         model.Handle
}

// End returns the attachment point on the target shape.
func (l *Link) End() geom.Point { return l.Target.Position.Add(l.Offset) }

// State is the owned diagram state: one node table and one link table.
type State struct {
	Nodes *Table[*Node]
	Links *Table[*Link]
}

// NewState returns an empty diagram.
func NewState() *State {
	return &State{
		Nodes: NewTable(func(n *Node) string { return n.ID }),
		Links: NewTable(func(l *Link) string { return l.ID }),
	}
}

// Node returns the node with the given id.
func (s *State) Node(id string) (*Node, bool) { return s.Nodes.Get(id) }

// Link returns the link with the given id.
func (s *State) Link(id string) (*Link, bool) { return s.Links.Get(id) }

// Live reports whether n is the node currently indexed under its id.
func (s *State) Live(n *Node) bool {
	if n == nil {
		return false
	}
	cur, ok := s.Nodes.Get(n.ID)
	return ok && cur == n
}

// Detached reports whether either endpoint of l is no longer live.
func (s *State) Detached(l *Link) bool {
	return !s.Live(l.Source) || !s.Live(l.Target)
}

// Attached returns the links whose endpoints are both live, in slot order.
func (s *State) Attached() []*Link {
	out := make([]*Link, 0, s.Links.Len())
	for _, l := range s.Links.Items() {
		if !s.Detached(l) {
			out = append(out, l)
		}
	}
	return out
}

// LinksOf returns the attached links touching n.
func (s *State) LinksOf(n *Node) []*Link {
	var out []*Link
	for _, l := range s.Links.Items() {
		if (l.Source == n || l.Target == n) && !s.Detached(l) {
			out = append(out, l)
		}
	}
	return out
}

// NodeAt returns the topmost node containing p. Later slots render on
// top, so the search runs backwards.
func (s *State) NodeAt(p geom.Point) (*Node, bool) {
	items := s.Nodes.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Contains(p) {
			return items[i], true
		}
	}
	return nil, false
}

// Selected returns the selected nodes in slot order.
func (s *State) Selected() []*Node {
	var out []*Node
	for _, n := range s.Nodes.Items() {
		if n.Selected {
			out = append(out, n)
		}
	}
	return out
}

// Check verifies both indexes.
func (s *State) Check() error {
	if err := s.Nodes.Check(); err != nil {
		return err
	}
	return s.Links.Check()
}
