package store

import (
	"slices"
	"time"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/shape"
)

// NodeState is the layout state of one node.
type NodeState struct {
	ID     string  `json:"id" bson:"id" msgpack:"id"`
	X      float64 `json:"x" bson:"x" msgpack:"x"`
	Y      float64 `json:"y" bson:"y" msgpack:"y"`
	Pinned bool    `json:"pinned" bson:"pinned" msgpack:"pinned"`
}

// LinkState is the anchor state of one arc.
type LinkState struct {
	ID     string `json:"id" bson:"id" msgpack:"id"`
	Anchor string `json:"anchor,omitempty" bson:"anchor,omitempty" msgpack:"anchor,omitempty"`
	Locked bool   `json:"locked,omitempty" bson:"locked,omitempty" msgpack:"locked,omitempty"`
}

// Snapshot is the saved layout of one diagram.
type Snapshot struct {
	Name    string      `json:"name" bson:"_id" msgpack:"name"`
	SavedAt time.Time   `json:"saved_at" bson:"saved_at" msgpack:"saved_at"`
	Nodes   []NodeState `json:"nodes" bson:"nodes" msgpack:"nodes"`
	Links   []LinkState `json:"links" bson:"links" msgpack:"links"`
}

// Capture records the layout of every model-backed entity in st.
// Provisional entities are skipped since they have no stable id yet,
// and only arcs with a locked anchor are recorded.
func Capture(name string, st *diagram.State) *Snapshot {
	s := &Snapshot{Name: name, SavedAt: time.Now().UTC()}
	for _, n := range st.Nodes.Items() {
		if n.Provisional {
			continue
		}
		s.Nodes = append(s.Nodes, NodeState{ID: n.ID, X: n.Position.X, Y: n.Position.Y, Pinned: n.Pinned})
	}
	for _, l := range st.Links.Items() {
		if l.Provisional || !l.Locked {
			continue
		}
		s.Links = append(s.Links, LinkState{ID: l.ID, Anchor: string(l.Anchor), Locked: l.Locked})
	}
	return s
}

// Apply moves the nodes of st to their saved positions and restores
// locked anchors. Entries for ids that no longer exist are ignored. It
// returns the number of nodes and links that were updated.
func (s *Snapshot) Apply(st *diagram.State) (nodes, links int) {
	for _, ns := range s.Nodes {
		n, ok := st.Node(ns.ID)
		if !ok {
			continue
		}
		n.Position.X, n.Position.Y = ns.X, ns.Y
		n.Pinned = ns.Pinned
		nodes++
	}
	for _, ls := range s.Links {
		l, ok := st.Link(ls.ID)
		if !ok || !ls.Locked {
			continue
		}
		l.Anchor = shape.AnchorName(ls.Anchor)
		l.Locked = true
		links++
	}
	return nodes, links
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Nodes = slices.Clone(s.Nodes)
	c.Links = slices.Clone(s.Links)
	return &c
}
