// Package synchronizer projects model notifications onto a diagram.
//
// The [Synchronizer] is the only writer of model-backed entities in a
// [diagram.State]. It decodes each notification into a typed
// [model.Entity], applies it to the node or link table, and calls the
// refresh callback afterwards, whether or not anything changed.
//
// Four classes of notification are expected and dropped without touching
// the diagram: an arc whose endpoints are not indexed yet
// (DANGLING_REFERENCE), a node without a name (INCOMPLETE_ENTITY), a node
// whose position cannot be parsed (MALFORMED_POSITION) and an entity of
// an unknown type (UNKNOWN_ENTITY_TYPE). The dangling case heals itself:
// once both endpoints exist, the next add or update of the arc inserts
// the link.
package synchronizer

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/observability"
	"github.com/matzehuels/petrisync/pkg/position"
	"github.com/matzehuels/petrisync/pkg/shape"
)

// FormSink receives forms, which the diagram itself never draws.
type FormSink interface {
	ShowForm(f *model.Form)
	RemoveForm(id string)
}

// Options configures a [Synchronizer].
type Options struct {
	// Shapes selects node outlines. Defaults to [shape.Default].
	Shapes *shape.Registry
	// Origin is the point position descriptors are relative to.
	Origin geom.Point
	// Refresh is called after every operation. It must be idempotent.
	Refresh func()
	// Forms receives form entities. Nil discards them.
	Forms FormSink
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Synchronizer applies model notifications to a diagram.
type Synchronizer struct {
	state   *diagram.State
	shapes  *shape.Registry
	origin  geom.Point
	refresh func()
	forms   FormSink
	logger  *log.Logger
}

// New returns a synchronizer writing into state.
func New(state *diagram.State, opts Options) *Synchronizer {
	if opts.Shapes == nil {
		opts.Shapes = shape.Default()
	}
	if opts.Refresh == nil {
		opts.Refresh = func() {}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Synchronizer{
		state:   state,
		shapes:  opts.Shapes,
		origin:  opts.Origin,
		refresh: opts.Refresh,
		forms:   opts.Forms,
		logger:  opts.Logger,
	}
}

// Origin returns the point position descriptors are relative to.
func (s *Synchronizer) Origin() geom.Point { return s.origin }

// OnAdd applies a newly created model entity.
func (s *Synchronizer) OnAdd(e model.Entity) error {
	defer s.refresh()
	return s.track(model.OpAdd, e, s.upsert(e))
}

// OnUpdate applies a changed model entity. Unknown ids are created, so an
// update can complete an entity whose add was dropped.
func (s *Synchronizer) OnUpdate(e model.Entity) error {
	defer s.refresh()
	return s.track(model.OpUpdate, e, s.upsert(e))
}

// OnRemove erases the entity from the table matching its type.
func (s *Synchronizer) OnRemove(e model.Entity) error {
	defer s.refresh()
	id := e.EntityID()
	switch e.(type) {
	case *model.Arc:
		s.state.Links.Remove(id)
	case *model.Place, *model.Transition:
		s.state.Nodes.Remove(id)
	case *model.Form:
		if s.forms != nil {
			s.forms.RemoveForm(id)
		}
	}
	return s.track(model.OpRemove, e, nil)
}

// Notify decodes r and dispatches it by op. It implements
// [model.Listener]. Expected errors are logged at debug level, anything
// else as a warning; neither is returned.
func (s *Synchronizer) Notify(op model.Op, r model.Record) {
	e, err := decodeFor(op, r)
	if err != nil {
		defer s.refresh()
		var id string
		if r != nil {
			id = r.ID()
		}
		s.drop(op, "", id, err)
		return
	}
	switch op {
	case model.OpAdd:
		err = s.OnAdd(e)
	case model.OpUpdate:
		err = s.OnUpdate(e)
	case model.OpRemove:
		err = s.OnRemove(e)
	default:
		err = errors.New(errors.ErrCodeUnsupported, "unknown notification %q", op)
	}
	if err != nil {
		s.drop(op, string(e.Type()), e.EntityID(), err)
	}
}

// decodeFor decodes r. A removal only needs the id and the type, so an
// incomplete arc can still be removed.
func decodeFor(op model.Op, r model.Record) (model.Entity, error) {
	e, err := model.Decode(r)
	if r == nil || err == nil || op != model.OpRemove || !errors.Is(err, errors.ErrCodeIncompleteEntity) {
		return e, err
	}
	v, _ := r.Get(model.FieldType)
	if model.Type(model.Stringify(v)) == model.TypeArc {
		return model.NewArc(r.ID(), r, "", ""), nil
	}
	return nil, err
}

func (s *Synchronizer) upsert(e model.Entity) error {
	switch v := e.(type) {
	case *model.Arc:
		return s.upsertLink(v)
	case *model.Place:
		return s.upsertNode(diagram.Place, v, &v.NodeFields)
	case *model.Transition:
		return s.upsertNode(diagram.Transition, v, &v.NodeFields)
	case *model.Form:
		if s.forms != nil {
			s.forms.ShowForm(v)
		}
		return nil
	}
	return errors.New(errors.ErrCodeUnknownEntityType, "entity %s has unknown type %s", e.EntityID(), e.Type())
}

func (s *Synchronizer) upsertNode(kind diagram.Kind, e model.Entity, f *model.NodeFields) error {
	id := e.EntityID()
	name, ok := f.Name.Get()
	if !ok {
		return errors.New(errors.ErrCodeIncompleteEntity, "%s %s has no name", kind, id)
	}

	var (
		pos    geom.Point
		hasPos bool
	)
	if desc, ok := f.Position.Get(); ok {
		p, err := position.Resolve(desc, s.origin)
		if err != nil {
			return err
		}
		pos, hasPos = p, true
	}

	n, created := s.state.Nodes.Upsert(id, func() *diagram.Node {
		return &diagram.Node{ID: id}
	})
	n.Kind = kind
	n.Name = name
	n.Marking = f.Marking
	n.Highlighted = f.Highlighted
	n.Selected = f.Selected
	n.Shape = s.shapes.Select(kind == diagram.Transition, f.Highlighted)
	n.Ref = e.Handle()
	n.Provisional = false

	switch {
	case hasPos:
		n.Position = pos
	case created:
		n.Position = s.origin
	}
	if created {
		// Without a position the simulation has to place the node.
		n.Pinned = hasPos
	}
	if pinned, ok := f.Pinned.Get(); ok {
		n.Pinned = pinned
	}
	return nil
}

func (s *Synchronizer) upsertLink(a *model.Arc) error {
	src, ok := s.state.Node(a.Source)
	if !ok {
		return errors.New(errors.ErrCodeDanglingReference, "arc %s: source %s not found", a.EntityID(), a.Source)
	}
	dst, ok := s.state.Node(a.Target)
	if !ok {
		return errors.New(errors.ErrCodeDanglingReference, "arc %s: target %s not found", a.EntityID(), a.Target)
	}

	id := a.EntityID()
	l, _ := s.state.Links.Upsert(id, func() *diagram.Link {
		return &diagram.Link{ID: id}
	})
	l.Source = src
	l.Target = dst
	l.Anchor = shape.AnchorName(a.Anchor)
	l.Locked = a.Locked
	l.Kind = a.Kind
	l.Label = a.Valuation.Or("")
	l.Ref = a.Handle()
	l.Provisional = false
	return nil
}

func (s *Synchronizer) track(op model.Op, e model.Entity, err error) error {
	if err == nil {
		observability.Sync().OnApplied(string(op), string(e.Type()))
	}
	return err
}

func (s *Synchronizer) drop(op model.Op, typ, id string, err error) {
	code := errors.GetCode(err)
	observability.Sync().OnDropped(string(op), typ, string(code))
	if errors.Expected(err) {
		s.logger.Debug("notification dropped", "op", op, "id", id, "code", code, "err", err)
		return
	}
	s.logger.Warn("notification failed", "op", op, "id", id, "err", err)
}
