package synchronizer

import (
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/shape"
)

var origin = geom.Pt(480, 250)

type fixture struct {
	state    *diagram.State
	sync     *Synchronizer
	store    *model.Store
	refresh  int
	forms    map[string]*model.Form
	removals []string
}

func (f *fixture) ShowForm(form *model.Form) { f.forms[form.EntityID()] = form }
func (f *fixture) RemoveForm(id string) {
	delete(f.forms, id)
	f.removals = append(f.removals, id)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{state: diagram.NewState(), store: model.NewStore(), forms: map[string]*model.Form{}}
	f.sync = New(f.state, Options{
		Origin:  origin,
		Refresh: func() { f.refresh++ },
		Forms:   f,
		Logger:  log.New(io.Discard),
	})
	f.store.Subscribe(f.sync)
	return f
}

func (f *fixture) add(t *testing.T, id string, fields map[string]any) {
	t.Helper()
	if _, err := f.store.Add(id, fields); err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

func place(name, pos string) map[string]any {
	return map[string]any{"type": "place", "name": name, "position": pos}
}

func TestAddNode(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", map[string]any{"type": "place", "name": "free", "position": "100,50", "marking": true})
	f.add(t, "t1", map[string]any{"type": "transition", "name": "enter", "position": "0:100", "highlighted": true})

	p, ok := f.state.Node("p1")
	if !ok {
		t.Fatal("p1 not indexed")
	}
	if p.Position != geom.Pt(580, 200) {
		t.Errorf("p1 position = %v, want (580,200)", p.Position)
	}
	if !p.Pinned || !p.Marking || p.Kind != diagram.Place {
		t.Errorf("p1 = %+v", p)
	}
	if p.Shape != shape.Default().Get(shape.KindCircle) {
		t.Errorf("p1 shape = %s, want circle", p.Shape.Kind())
	}
	if p.Ref == nil || p.Ref.ID() != "p1" {
		t.Error("p1 has no model handle")
	}

	tr, _ := f.state.Node("t1")
	if tr.Shape != shape.Default().Get(shape.KindRectHighlighted) {
		t.Errorf("t1 shape = %s, want highlighted rect", tr.Shape.Kind())
	}
	if f.refresh != 2 {
		t.Errorf("refresh called %d times, want 2", f.refresh)
	}
}

func TestRoundTripIdentity(t *testing.T) {
	fields := map[string]any{"type": "place", "name": "p", "position": "-20,35.5", "marking": true, "selected": true}

	once := newFixture(t)
	once.add(t, "p", fields)

	twice := newFixture(t)
	twice.add(t, "p", fields)
	if err := twice.store.Update("p", fields); err != nil {
		t.Fatal(err)
	}

	a, _ := once.state.Node("p")
	b, _ := twice.state.Node("p")
	ca, cb := *a, *b
	ca.Ref, cb.Ref = nil, nil
	if !reflect.DeepEqual(ca, cb) {
		t.Errorf("add+update = %+v, want %+v", cb, ca)
	}
}

func TestIncompleteNodeSkipped(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", map[string]any{"type": "place", "position": "0,0"})
	if f.state.Nodes.Len() != 0 {
		t.Fatal("node without a name must not be indexed")
	}
	if f.refresh != 1 {
		t.Errorf("refresh = %d, want 1 even when skipped", f.refresh)
	}

	// Naming it later materializes it.
	if err := f.store.Update("p1", map[string]any{"name": "late"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.state.Node("p1"); !ok {
		t.Error("node should appear once it has a name")
	}
}

func TestMalformedPositionKeepsState(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", place("p1", "10,10"))
	before, _ := f.state.Node("p1")
	snapshot := *before

	if err := f.store.Update("p1", map[string]any{"name": "renamed", "position": "garbage", "marking": true}); err != nil {
		t.Fatal(err)
	}
	after, _ := f.state.Node("p1")
	if !reflect.DeepEqual(snapshot, *after) {
		t.Errorf("malformed update changed node: %+v -> %+v", snapshot, *after)
	}

	for _, pos := range []string{"", "   "} {
		if err := f.store.Update("p1", map[string]any{"name": "renamed", "position": pos}); err != nil {
			t.Fatal(err)
		}
		after, _ := f.state.Node("p1")
		if !reflect.DeepEqual(snapshot, *after) {
			t.Errorf("update with position %q changed node: %+v -> %+v", pos, snapshot, *after)
		}
	}

	// A malformed position on creation leaves the node absent.
	for id, pos := range map[string]string{"p2": "1;2", "p3": "", "p4": "   "} {
		f.add(t, id, place(id, pos))
		if _, ok := f.state.Node(id); ok {
			t.Errorf("%s with position %q should not be indexed", id, pos)
		}
	}
}

func TestMissingPosition(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", map[string]any{"type": "place", "name": "floating"})
	n, _ := f.state.Node("p1")
	if n.Position != origin || n.Pinned {
		t.Errorf("new node without position = %v pinned=%v, want origin unpinned", n.Position, n.Pinned)
	}

	n.Position = geom.Pt(12, 34)
	n.Pinned = true
	if err := f.store.Update("p1", map[string]any{"marking": true}); err != nil {
		t.Fatal(err)
	}
	if n.Position != geom.Pt(12, 34) || !n.Pinned {
		t.Errorf("update without position moved node to %v pinned=%v", n.Position, n.Pinned)
	}
}

func TestPinnedOnlyChangedByModel(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", place("p1", "0,0"))
	n, _ := f.state.Node("p1")

	n.Pinned = false
	f.store.Update("p1", map[string]any{"position": "5,5"})
	if n.Pinned {
		t.Error("update without pinned field must leave Pinned alone")
	}
	f.store.Update("p1", map[string]any{"pinned": true})
	if !n.Pinned {
		t.Error("explicit pinned=true should pin")
	}
}

func TestDanglingArc(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", place("A", "0,0"))
	arc := map[string]any{"type": "arc", "source": "A", "target": "B"}
	f.add(t, "a1", arc)
	if f.state.Links.Len() != 0 {
		t.Fatal("arc with a missing endpoint must not be indexed")
	}

	f.add(t, "B", map[string]any{"type": "transition", "name": "B", "position": "100,0"})
	if f.state.Links.Len() != 0 {
		t.Fatal("adding the endpoint alone must not insert the arc")
	}

	if err := f.store.Update("a1", arc); err != nil {
		t.Fatal(err)
	}
	l, ok := f.state.Link("a1")
	if !ok {
		t.Fatal("arc should appear after re-sending it")
	}
	a, _ := f.state.Node("A")
	b, _ := f.state.Node("B")
	if l.Source != a || l.Target != b {
		t.Error("link endpoints must be the live nodes")
	}

	// Later node moves are visible through the link.
	f.store.Update("B", map[string]any{"position": "200,0"})
	if l.Target.Position != geom.Pt(680, 250) {
		t.Errorf("target seen through link at %v", l.Target.Position)
	}
}

func TestArcFields(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p", place("p", "0,0"))
	f.add(t, "t", map[string]any{"type": "transition", "name": "t", "position": "0:100"})
	f.add(t, "a", map[string]any{"type": "arc", "source": "p", "target": "t", "anchor": "west", "lock_pos": true, "kind": "suit", "valuation": "2"})

	l, _ := f.state.Link("a")
	if l.Anchor != shape.West || !l.Locked || l.Kind != "suit" || l.Label != "2" {
		t.Errorf("link = %+v", l)
	}

	f.store.Update("a", map[string]any{"anchor": nil, "lock_pos": nil, "kind": nil})
	if l.Anchor != "" || l.Locked || l.Kind != model.DefaultArcKind {
		t.Errorf("defaults not restored: anchor=%q locked=%v kind=%q", l.Anchor, l.Locked, l.Kind)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"A", "B", "C"} {
		f.add(t, id, place(id, "0,0"))
	}
	f.add(t, "ab", map[string]any{"type": "arc", "source": "A", "target": "B"})

	if err := f.store.Remove("B"); err != nil {
		t.Fatal(err)
	}
	if i, _ := f.state.Nodes.Index("C"); i != 1 {
		t.Errorf("C at slot %d, want 1", i)
	}
	l, ok := f.state.Link("ab")
	if !ok {
		t.Fatal("removing a node must not remove its arcs")
	}
	if !f.state.Detached(l) {
		t.Error("arc to a removed node should be detached")
	}

	if err := f.store.Remove("ab"); err != nil {
		t.Fatal(err)
	}
	if f.state.Links.Len() != 0 {
		t.Error("arc not removed")
	}
	if err := f.state.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestForms(t *testing.T) {
	f := newFixture(t)
	f.add(t, "form", map[string]any{
		"type":     "form",
		"elements": []any{map[string]any{"id": "ok", "type": "button", "name": "OK"}},
	})
	form, ok := f.forms["form"]
	if !ok || len(form.Elements) != 1 {
		t.Fatalf("form not forwarded: %v", f.forms)
	}
	if f.state.Nodes.Len() != 0 || f.state.Links.Len() != 0 {
		t.Error("forms must not touch the diagram")
	}
	f.store.Remove("form")
	if len(f.removals) != 1 || f.removals[0] != "form" {
		t.Errorf("removals = %v", f.removals)
	}
}

func TestDirectErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		e    model.Entity
		code errors.Code
	}{
		{"NoName", model.NewPlace("x", nil, model.NodeFields{}), errors.ErrCodeIncompleteEntity},
		{"BadPosition", model.NewTransition("x", nil, model.NodeFields{
			Name: model.Some("x"), Position: model.Some("north"),
		}), errors.ErrCodeMalformedPosition},
		{"Dangling", model.NewArc("a", nil, "nope", "nada"), errors.ErrCodeDanglingReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.sync.OnAdd(tt.e); !errors.Is(err, tt.code) {
				t.Errorf("OnAdd = %v, want %s", err, tt.code)
			}
		})
	}
}
