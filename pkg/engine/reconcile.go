package engine

import (
	"fmt"
	"strings"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/interact"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/position"
)

// Pending returns the provisional entities that are neither committed
// nor discarded.
func (e *Editor) Pending() []interact.Provisional { return e.pending }

// Discard removes every pending provisional entity from the diagram.
func (e *Editor) Discard() {
	for _, p := range e.pending {
		if p.Link != nil {
			e.state.Links.Remove(p.Link.ID)
		}
		if p.Node != nil {
			e.state.Nodes.Remove(p.Node.ID)
		}
	}
	e.pending = nil
	e.Refresh()
}

// Commit publishes pending entities to the model. Nodes are published
// before the arcs that reference them. A local entity stays on the canvas
// until the model entity it was published as arrives, then it is
// replaced. On error the entities not yet published stay pending.
func (e *Editor) Commit() error {
	if e.publisher == nil {
		return errors.New(errors.ErrCodeUnsupported, "editor has no publisher")
	}
	for len(e.pending) > 0 {
		p := e.pending[0]
		if p.Node != nil && e.published[p.Node.ID] == "" {
			if err := e.publishNode(p.Node); err != nil {
				return err
			}
		}
		if p.Link != nil && e.published[p.Link.ID] == "" {
			if err := e.publishLink(p.Link); err != nil {
				return err
			}
		}
		e.pending = e.pending[1:]
	}
	e.reconcile()
	e.Refresh()
	return nil
}

func (e *Editor) publishNode(n *diagram.Node) error {
	fields := map[string]any{
		model.FieldName:     provisionalName(n),
		model.FieldPosition: position.Cartesian(n.Position, e.origin),
		model.FieldPinned:   n.Pinned,
	}
	id, err := e.publisher.Create(n.Kind.ModelType(), fields)
	if err != nil {
		return fmt.Errorf("publish %s %s: %w", n.Kind, n.ID, err)
	}
	e.published[n.ID] = id
	return nil
}

func (e *Editor) publishLink(l *diagram.Link) error {
	if !e.state.Live(l.Source) || !e.state.Live(l.Target) {
		return errors.New(errors.ErrCodeDanglingReference, "link %s has an endpoint that was removed", l.ID)
	}
	src, dst := e.modelID(l.Source), e.modelID(l.Target)
	if src == "" || dst == "" {
		return errors.New(errors.ErrCodeDanglingReference, "link %s has an unpublished endpoint", l.ID)
	}
	fields := map[string]any{
		model.FieldSource: src,
		model.FieldTarget: dst,
		model.FieldKind:   l.Kind,
	}
	id, err := e.publisher.Create(model.TypeArc, fields)
	if err != nil {
		return fmt.Errorf("publish arc %s: %w", l.ID, err)
	}
	e.published[l.ID] = id
	return nil
}

// modelID maps a node to the id the model knows it by.
func (e *Editor) modelID(n *diagram.Node) string {
	if !n.Provisional {
		return n.ID
	}
	return e.published[n.ID]
}

// reconcile replaces published local entities whose model counterpart
// has arrived. Links go first so no model link is left pointing at a
// removed local node.
func (e *Editor) reconcile() {
	if len(e.published) == 0 {
		return
	}
	for local, id := range e.published {
		l, ok := e.state.Link(local)
		if !ok {
			continue
		}
		if _, arrived := e.state.Link(id); arrived {
			e.state.Links.Remove(l.ID)
			delete(e.published, local)
		}
	}
	for local, id := range e.published {
		if _, isLink := e.state.Link(local); isLink {
			continue
		}
		n, ok := e.state.Node(local)
		if !ok {
			delete(e.published, local)
			continue
		}
		if _, arrived := e.state.Node(id); arrived {
			if e.hasLocalLinks(n) {
				continue
			}
			e.state.Nodes.Remove(n.ID)
			delete(e.published, local)
		}
	}
}

func (e *Editor) hasLocalLinks(n *diagram.Node) bool {
	for _, l := range e.state.LinksOf(n) {
		if l.Provisional {
			return true
		}
	}
	return false
}

// provisionalName labels a new node after its kind and local id.
func provisionalName(n *diagram.Node) string {
	suffix := strings.TrimPrefix(n.ID, interact.LocalPrefix)
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return n.Kind.String() + "-" + suffix
}
