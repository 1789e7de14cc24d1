package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
)

const netModel = `name: net
entities:
  - {id: p1, type: place, name: free, position: "0,0", marking: true}
  - {id: t1, type: transition, name: enter, position: "150,0"}
  - {id: a1, type: arc, source: p1, target: t1}
`

// editFixture runs an editor for src and returns a sized model bound to it.
func editFixture(t *testing.T, src string) (EditModel, *session, *editorLink) {
	t.Helper()
	c := newTestCLI(t)
	link := newEditorLink()
	s, err := c.openSession(writeFile(t, "net.yaml", src), sessionOptions{renderer: link, forms: link, async: true})
	if err != nil {
		t.Fatal(err)
	}
	link.ed = s.ed
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.stop()
	})
	go s.ed.Run(ctx)

	m := newEditModel(ctx, s, nil, 960, 600)
	m.doubleClick = time.Minute
	m.copy = func(string) error { return nil }
	m = update(t, m, tea.WindowSizeMsg{Width: 96, Height: 60 + chromeRows})
	return m, s, link
}

func update(t *testing.T, m EditModel, msg tea.Msg) EditModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(EditModel)
}

// cellOf returns the terminal cell over the node with the given id.
func cellOf(t *testing.T, m EditModel, s *session, id string) (int, int) {
	t.Helper()
	var x, y int
	found := false
	if err := s.ed.Do(context.Background(), func() {
		if n, ok := s.ed.State().Node(id); ok {
			x, y = m.toCell(n.Position.X, n.Position.Y)
			found = true
		}
	}); err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatalf("node %s not in diagram", id)
	}
	return x, y
}

func mouse(x, y int, action tea.MouseAction) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: action}
}

func selected(s *session, id string) bool {
	e, ok := s.model.Get(id)
	if !ok {
		return false
	}
	v, _ := e.Get(model.FieldSelected)
	return model.Truthy(v)
}

func TestEditClickSelectsAndDoublePressDeselects(t *testing.T) {
	m, s, _ := editFixture(t, netModel)
	x, y := cellOf(t, m, s, "p1")

	m = update(t, m, mouse(x, y, tea.MouseActionPress))
	m = update(t, m, mouse(x, y, tea.MouseActionRelease))
	if !selected(s, "p1") {
		t.Fatal("click did not select p1 in the model")
	}

	m = update(t, m, mouse(x, y, tea.MouseActionPress))
	m = update(t, m, mouse(x, y, tea.MouseActionRelease))
	if selected(s, "p1") {
		t.Error("double press did not deselect p1")
	}
	if m.statusIsError {
		t.Errorf("unexpected error status %q", m.status)
	}
}

func TestEditDrawAndCommit(t *testing.T) {
	m, s, _ := editFixture(t, netModel)
	x, y := cellOf(t, m, s, "p1")

	m = update(t, m, mouse(x, y, tea.MouseActionPress))
	m = update(t, m, tea.MouseMsg{X: 5, Y: 5, Action: tea.MouseActionMotion})
	m = update(t, m, mouse(5, 5, tea.MouseActionRelease))

	var pending int
	_ = s.ed.Do(context.Background(), func() { pending = len(s.ed.Pending()) })
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if m.statusIsError {
		t.Fatalf("commit failed: %s", m.status)
	}
	if got := s.model.Len(); got != 5 {
		t.Errorf("model has %d entities after commit, want 5", got)
	}
}

func TestEditFormInput(t *testing.T) {
	m, s, link := editFixture(t, testModel)
	_ = s.ed.Do(context.Background(), func() {})
	m = update(t, m, viewMsg{link.snapshot()})
	if len(m.view.forms) != 1 {
		t.Fatalf("forms = %d, want 1", len(m.view.forms))
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	f, ok := m.focused()
	if !ok || f.elem.ID != "f1-name" || m.input != "free" {
		t.Fatalf("focus = %+v, input %q", f, m.input)
	}
	for range "free" {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("held")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if f, _ := m.focused(); f.elem.ID != "f1-ok" {
		t.Fatalf("second tab focused %q, want f1-ok", f.elem.ID)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	var value, clicked bool
	for _, call := range s.model.Journal() {
		switch {
		case call.ID == "f1-name" && call.Field == model.FieldValue && call.Value == "held":
			value = true
		case call.ID == "f1-ok" && call.Field == model.FieldClicked && call.Value == true:
			clicked = true
		}
	}
	if !value || !clicked {
		t.Errorf("journal %+v lacks the form writes", s.model.Journal())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if _, ok := m.focused(); ok {
		t.Error("third tab should return focus to the canvas")
	}
}

func TestEditCopySelection(t *testing.T) {
	m, _, _ := editFixture(t, netModel)
	var copied string
	m.copy = func(s string) error { copied = s; return nil }

	m = update(t, m, viewMsg{viewState{frame: &render.Frame{Nodes: []render.NodeView{
		{ID: "p1", Selected: true},
		{ID: "t1"},
	}}}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if copied != "p1" {
		t.Errorf("copied %q, want p1", copied)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	if !strings.HasPrefix(copied, "digraph G") {
		t.Errorf("copied %q, want DOT", copied)
	}
}

func TestEditView(t *testing.T) {
	m, s, link := editFixture(t, netModel)
	_ = s.ed.Do(context.Background(), s.ed.Refresh)
	m = update(t, m, viewMsg{link.snapshot()})

	view := m.View()
	for _, want := range []string{"free", "enter", "net", "2 nodes · 1 arcs"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestEditorLinkCoalesces(t *testing.T) {
	l := newEditorLink()
	first, last := &render.Frame{Tick: 1}, &render.Frame{Tick: 2}
	l.Render(first)
	l.Render(last)
	l.ShowForm(model.NewForm("f2", nil))
	l.ShowForm(model.NewForm("f1", nil))
	l.RemoveForm("f2")

	if len(l.dirty) != 1 {
		t.Errorf("dirty = %d, want 1", len(l.dirty))
	}
	v := l.snapshot()
	if v.frame != last {
		t.Error("snapshot does not hold the latest frame")
	}
	if len(v.forms) != 1 || v.forms[0].EntityID() != "f1" {
		t.Errorf("forms = %v", v.forms)
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan tea.Msg, 1)
	go l.pump(ctx, func(msg tea.Msg) { got <- msg; cancel() })
	select {
	case msg := <-got:
		if vm, ok := msg.(viewMsg); !ok || vm.view.frame != last {
			t.Errorf("pump sent %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("pump did not forward the view")
	}
}

func TestGridLine(t *testing.T) {
	g := newGrid(5, 3)
	g.line(0, 0, 4, 2, '*', cellLink)
	n := 0
	for _, c := range g.cells {
		if c.r == '*' {
			n++
		}
	}
	if n != 5 {
		t.Errorf("line set %d cells, want 5", n)
	}
	if g.cells[0].r != '*' || g.cells[len(g.cells)-1].r != '*' {
		t.Error("line does not reach both ends")
	}
}

func TestLinkRunes(t *testing.T) {
	tests := []struct {
		dx, dy float64
		line   rune
		arrow  rune
	}{
		{10, 0, '─', '▶'},
		{-10, 1, '─', '◀'},
		{0, 10, '│', '▼'},
		{10, 10, '╲', '▶'},
		{10, -10, '╱', '▶'},
		{1, -10, '│', '▲'},
	}
	for _, tt := range tests {
		if got := linkRune(tt.dx, tt.dy); got != tt.line {
			t.Errorf("linkRune(%v, %v) = %c, want %c", tt.dx, tt.dy, got, tt.line)
		}
		if got := arrowRune(tt.dx, tt.dy); got != tt.arrow {
			t.Errorf("arrowRune(%v, %v) = %c, want %c", tt.dx, tt.dy, got, tt.arrow)
		}
	}
}

func TestEditKeysAfterShutdown(t *testing.T) {
	c := newTestCLI(t)
	link := newEditorLink()
	s, err := c.openSession(writeFile(t, "net.yaml", netModel), sessionOptions{renderer: link, forms: link, async: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.stop)
	link.ed = s.ed

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := newEditModel(ctx, s, nil, 960, 600)
	m = update(t, m, tea.WindowSizeMsg{Width: 96, Height: 60 + chromeRows})
	for _, key := range []string{"c", "L"} {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		if !m.statusIsError || m.status != context.Canceled.Error() {
			t.Errorf("%s after shutdown: status %q error=%v", key, m.status, m.statusIsError)
		}
	}

	// The abandoned work still runs once an editor loop drains the queue.
	live, stop := context.WithCancel(context.Background())
	defer stop()
	go s.ed.Run(live)
	if err := s.ed.Do(live, func() {}); err != nil {
		t.Fatal(err)
	}
}
