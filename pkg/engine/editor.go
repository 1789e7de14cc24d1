package engine

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/petrisync/pkg/anchor"
	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/interact"
	"github.com/matzehuels/petrisync/pkg/layout"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
	"github.com/matzehuels/petrisync/pkg/shape"
	"github.com/matzehuels/petrisync/pkg/store"
	"github.com/matzehuels/petrisync/pkg/synchronizer"
)

// Renderer receives a frame after every refresh. Frames are not reused;
// a renderer may keep one.
type Renderer interface {
	Render(f *render.Frame)
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(f *render.Frame)

// Render calls fn(f).
func (fn RendererFunc) Render(f *render.Frame) { fn(f) }

// Publisher creates model entities on behalf of the editor. Both
// [model.Store] and the feed client implement it.
type Publisher interface {
	Create(typ model.Type, fields map[string]any) (string, error)
}

// Options configures an [Editor].
type Options struct {
	Shapes *shape.Registry
	// Origin is the canvas point position descriptors are relative to.
	Origin geom.Point
	// Layout defaults to layout.DefaultParams with Center set to Origin.
	Layout *layout.Params

	Trigger  interact.DragTrigger
	DeadZone float64

	Renderer  Renderer
	Publisher Publisher
	Forms     synchronizer.FormSink

	// NewID overrides provisional id generation.
	NewID func() string

	Logger *log.Logger
}

// Editor is the diagram editor. See the package documentation for its
// threading rules.
type Editor struct {
	state     *diagram.State
	shapes    *shape.Registry
	origin    geom.Point
	sync      *synchronizer.Synchronizer
	machine   *interact.Machine
	sim       *layout.Simulation
	renderer  Renderer
	publisher Publisher
	logger    *log.Logger

	frame *render.Frame

	pending   []interact.Provisional
	published map[string]string

	seenNodes, seenLinks int
	resumeAfterDrag      bool

	q queue
}

// New builds an editor with an empty diagram.
func New(opts Options) *Editor {
	if opts.Shapes == nil {
		opts.Shapes = shape.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Renderer == nil {
		opts.Renderer = RendererFunc(func(*render.Frame) {})
	}
	params := layout.DefaultParams()
	params.Center = opts.Origin
	if opts.Layout != nil {
		params = *opts.Layout
	}

	e := &Editor{
		state:     diagram.NewState(),
		shapes:    opts.Shapes,
		origin:    opts.Origin,
		sim:       layout.New(params),
		renderer:  opts.Renderer,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		frame:     &render.Frame{},
		published: make(map[string]string),
	}
	e.sync = synchronizer.New(e.state, synchronizer.Options{
		Shapes:  opts.Shapes,
		Origin:  opts.Origin,
		Refresh: e.afterSync,
		Forms:   opts.Forms,
		Logger:  opts.Logger,
	})
	e.machine = interact.New(e.state, e, interact.Options{
		Trigger:  opts.Trigger,
		DeadZone: opts.DeadZone,
		Shapes:   opts.Shapes,
		NewID:    opts.NewID,
	})
	e.q.init()
	return e
}

// State returns the owned diagram.
func (e *Editor) State() *diagram.State { return e.state }

// Machine returns the interaction machine.
func (e *Editor) Machine() *interact.Machine { return e.machine }

// Simulation returns the layout simulation.
func (e *Editor) Simulation() *layout.Simulation { return e.sim }

// Synchronizer returns the synchronizer.
func (e *Editor) Synchronizer() *synchronizer.Synchronizer { return e.sync }

// Origin returns the canvas origin.
func (e *Editor) Origin() geom.Point { return e.origin }

// Frame returns the last rendered frame.
func (e *Editor) Frame() *render.Frame { return e.frame }

// Notify applies a model notification. It implements [model.Listener]
// and must run on the editor goroutine; see [Editor.Listener] for a
// listener that is safe to call from elsewhere.
func (e *Editor) Notify(op model.Op, r model.Record) {
	e.sync.Notify(op, r)
	e.reconcile()
}

// Listener returns a model.Listener that posts every notification to the
// editor queue.
func (e *Editor) Listener() model.Listener {
	return model.ListenerFunc(func(op model.Op, r model.Record) {
		e.Post(func() { e.Notify(op, r) })
	})
}

// Start heats the layout simulation.
func (e *Editor) Start() { e.sim.Start() }

// Tick runs one layout step if the simulation is running: integrate,
// resolve anchors, render. It reports whether the simulation is still
// running afterwards.
func (e *Editor) Tick() bool {
	if !e.sim.Running() {
		return false
	}
	e.sim.Step(e.state)
	e.Refresh()
	return e.sim.Running()
}

// ApplySnapshot restores saved positions, pins and locked anchors.
func (e *Editor) ApplySnapshot(s *store.Snapshot) {
	nodes, links := s.Apply(e.state)
	e.logger.Debug("applied snapshot", "name", s.Name, "nodes", nodes, "links", links)
	e.Refresh()
}

// Snapshot captures the current layout under name.
func (e *Editor) Snapshot(name string) *store.Snapshot {
	return store.Capture(name, e.state)
}

// Press forwards a pointer press to the machine.
func (e *Editor) Press(p interact.Pointer) { e.machine.Press(p) }

// Move forwards a pointer move to the machine.
func (e *Editor) Move(p interact.Pointer) { e.machine.Move(p) }

// Release forwards a pointer release and keeps any provisional entities
// until they are committed or discarded.
func (e *Editor) Release(p interact.Pointer) error {
	prov, err := e.machine.Release(p)
	if !prov.Empty() {
		e.pending = append(e.pending, prov)
		e.logger.Debug("provisional entities", "node", prov.Node != nil, "link", prov.Link != nil)
	}
	return err
}

// DoublePress forwards a double press to the machine.
func (e *Editor) DoublePress(p interact.Pointer) error { return e.machine.DoublePress(p) }

// Cancel abandons the current gesture.
func (e *Editor) Cancel() { e.machine.Cancel() }

// LockAnchor freezes the current anchor of link id.
func (e *Editor) LockAnchor(id string) error {
	l, ok := e.state.Link(id)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "link %s not found", id)
	}
	anchor.Lock(l)
	if ref := l.Ref; ref != nil {
		name := string(l.Anchor)
		if err := ref.Set(model.FieldAnchor, name); err != nil {
			return err
		}
		if err := ref.Set(model.FieldLockPos, true); err != nil {
			return err
		}
	}
	e.Refresh()
	return nil
}

// HitTest returns the topmost node under p.
func (e *Editor) HitTest(p geom.Point) (*diagram.Node, bool) { return e.state.NodeAt(p) }

// Select writes the selection to the model and mirrors it on n. A node
// whose model entity is gone is removed from the diagram.
func (e *Editor) Select(n *diagram.Node, selected bool) error {
	if n.Ref == nil {
		n.Selected = selected
		return nil
	}
	if err := n.Ref.Set(model.FieldSelected, selected); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			e.logger.Debug("selected node vanished from model", "id", n.ID)
			e.state.Nodes.Remove(n.ID)
			return nil
		}
		return err
	}
	if e.state.Live(n) {
		n.Selected = selected
	}
	return nil
}

// Refresh resolves every anchor and renders a frame.
func (e *Editor) Refresh() {
	anchor.ResolveAll(e.state)
	f := render.Capture(e.state)
	if from, to, ok := e.machine.Band(); ok {
		f.Band = &render.Segment{From: from, To: to}
	}
	f.Tick = e.sim.Ticks()
	e.frame = f
	e.renderer.Render(f)
}

// SuspendLayout stops the simulation for a manual drag.
func (e *Editor) SuspendLayout() {
	e.resumeAfterDrag = e.sim.Running()
	e.sim.Stop()
}

// ResumeLayout restarts the simulation after a drag if it was running
// when the drag began.
func (e *Editor) ResumeLayout() {
	if e.resumeAfterDrag {
		e.sim.Resume()
	}
	e.resumeAfterDrag = false
}

// afterSync reheats the layout when the model added or removed entities,
// except while the user is dragging a node.
func (e *Editor) afterSync() {
	nodes, links := e.state.Nodes.Len(), e.state.Links.Len()
	changed := nodes != e.seenNodes || links != e.seenLinks
	e.seenNodes, e.seenLinks = nodes, links
	if changed && e.machine != nil && e.machine.State() != interact.Dragging {
		e.sim.Resume()
	}
	e.Refresh()
}

var _ interact.Host = (*Editor)(nil)
