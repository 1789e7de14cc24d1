package cli

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/petrisync/pkg/engine"
	"github.com/matzehuels/petrisync/pkg/geom"
	"github.com/matzehuels/petrisync/pkg/interact"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
	"github.com/matzehuels/petrisync/pkg/render/dot"
	"github.com/matzehuels/petrisync/pkg/store"
)

// Canvas styles
var (
	canvasLinkStyle        = lipgloss.NewStyle().Foreground(colorBlue)
	canvasBandStyle        = lipgloss.NewStyle().Foreground(colorGray)
	canvasNodeStyle        = lipgloss.NewStyle().Foreground(colorWhite)
	canvasHighlightedStyle = lipgloss.NewStyle().Foreground(colorYellow)
	canvasSelectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	canvasProvisionalStyle = lipgloss.NewStyle().Foreground(colorDim)
	canvasLabelStyle       = lipgloss.NewStyle().Foreground(colorGray)
	panelStyle             = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	focusStyle             = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	statusBarStyle         = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	panelWidth = 32
	chromeRows = 2 // status and help lines
)

// =============================================================================
// Editor link - engine to program
// =============================================================================

// viewState is what the editor goroutine publishes to the terminal.
type viewState struct {
	frame   *render.Frame
	forms   []*model.Form
	mode    interact.State
	running bool
	pending int
}

// viewMsg carries the latest view state into the program.
type viewMsg struct{ view viewState }

// editorLink renders frames and forms for the terminal. The editor calls
// it on its own goroutine; only the latest state is kept and a pump
// forwards it, so the editor never waits on the terminal.
type editorLink struct {
	ed *engine.Editor

	mu    sync.Mutex
	view  viewState
	forms map[string]*model.Form
	dirty chan struct{}
}

func newEditorLink() *editorLink {
	return &editorLink{forms: make(map[string]*model.Form), dirty: make(chan struct{}, 1)}
}

// Render implements engine.Renderer.
func (l *editorLink) Render(f *render.Frame) {
	l.mu.Lock()
	l.view.frame = f
	if l.ed != nil {
		l.view.mode = l.ed.Machine().State()
		l.view.running = l.ed.Simulation().Running()
		l.view.pending = len(l.ed.Pending())
	}
	l.mu.Unlock()
	l.mark()
}

// ShowForm implements synchronizer.FormSink.
func (l *editorLink) ShowForm(f *model.Form) {
	l.mu.Lock()
	l.forms[f.EntityID()] = f
	l.mu.Unlock()
	l.mark()
}

// RemoveForm implements synchronizer.FormSink.
func (l *editorLink) RemoveForm(id string) {
	l.mu.Lock()
	delete(l.forms, id)
	l.mu.Unlock()
	l.mark()
}

func (l *editorLink) mark() {
	select {
	case l.dirty <- struct{}{}:
	default:
	}
}

// snapshot returns the current view with forms sorted by id.
func (l *editorLink) snapshot() viewState {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.view
	v.forms = make([]*model.Form, 0, len(l.forms))
	for _, f := range l.forms {
		v.forms = append(v.forms, f)
	}
	slices.SortFunc(v.forms, func(a, b *model.Form) int { return strings.Compare(a.EntityID(), b.EntityID()) })
	return v
}

// pump forwards view changes to send until ctx ends.
func (l *editorLink) pump(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.dirty:
			send(viewMsg{l.snapshot()})
		}
	}
}

// =============================================================================
// EditModel - interactive diagram editor
// =============================================================================

// statusMsg reports the outcome of a background command.
type statusMsg struct {
	text string
	err  bool
}

// focusable is one form element that can take keyboard focus.
type focusable struct {
	form string
	elem model.FormElement
}

// EditModel is the bubbletea model of the terminal editor. Every editor
// call goes through [engine.Editor.Do] since the editor runs elsewhere.
type EditModel struct {
	ctx   context.Context
	s     *session
	store store.Store

	canvasW, canvasH float64
	doubleClick      time.Duration
	remote           bool
	copy             func(string) error

	view   viewState
	focus  int // index into focusables, -1 for the canvas
	input  string
	width  int
	height int

	lastPress     time.Time
	lastX, lastY  int
	status        string
	statusIsError bool
}

// Init implements tea.Model.
func (m EditModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case viewMsg:
		m.view = msg.view
		if m.focus >= len(m.focusables()) {
			m.focus, m.input = -1, ""
		}
	case statusMsg:
		m.status, m.statusIsError = msg.text, msg.err
	case tea.MouseMsg:
		return m.mouse(msg)
	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m EditModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if f, ok := m.focused(); ok {
		return m.formKey(msg, f)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.cycleFocus()
	case "esc":
		m.do(m.s.ed.Cancel)
	case "c":
		m.report(m.call(m.s.ed.Commit), "committed")
	case "x":
		m.do(m.s.ed.Discard)
		m.report(nil, "discarded")
	case " ":
		m.do(func() {
			if m.s.ed.Simulation().Running() {
				m.s.ed.Simulation().Stop()
				m.s.ed.Refresh()
			} else {
				m.s.ed.Start()
			}
		})
	case "L":
		m.report(m.call(func() error { return lockSelected(m.s.ed) }), "anchors locked")
	case "s":
		return m, m.saveSnapshot()
	case "w":
		return m, m.writeDocument()
	case "y":
		ids := m.selectedIDs()
		if len(ids) == 0 {
			m.report(nil, "nothing selected")
			break
		}
		m.report(m.copy(strings.Join(ids, "\n")), "copied "+strings.Join(ids, ", "))
	case "D":
		if m.view.frame == nil {
			break
		}
		m.report(m.copy(dot.ToDOT(m.view.frame, dot.Options{})), "copied DOT")
	}
	return m, nil
}

func (m EditModel) formKey(msg tea.KeyMsg, f focusable) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus, m.input = -1, ""
	case tea.KeyTab:
		m.cycleFocus()
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyEnter:
		h := f.elem.Handle
		if h == nil {
			break
		}
		if f.elem.Type == model.FormButton {
			m.report(h.Set(model.FieldClicked, true), "clicked "+f.elem.Name)
		} else {
			m.report(h.Set(model.FieldValue, m.input), "set "+f.elem.Name)
		}
	case tea.KeySpace:
		if f.elem.Type == model.FormText {
			m.input += " "
		}
	case tea.KeyRunes:
		if f.elem.Type == model.FormText {
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

func (m EditModel) mouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	cols, rows := m.canvasCells()
	if msg.X >= cols || msg.Y >= rows {
		return m, nil
	}
	p := m.pointer(msg)

	switch msg.Action {
	case tea.MouseActionPress:
		if p.Button == interact.ButtonNone {
			return m, nil
		}
		now := time.Now()
		double := now.Sub(m.lastPress) <= m.doubleClick && msg.X == m.lastX && msg.Y == m.lastY
		m.lastPress, m.lastX, m.lastY = now, msg.X, msg.Y
		if double {
			m.lastPress = time.Time{}
			m.report(m.call(func() error { return m.s.ed.DoublePress(p) }), "")
			return m, nil
		}
		m.do(func() { m.s.ed.Press(p) })
	case tea.MouseActionMotion:
		m.do(func() { m.s.ed.Move(p) })
	case tea.MouseActionRelease:
		m.report(m.call(func() error { return m.s.ed.Release(p) }), "")
	}
	return m, nil
}

// pointer converts a mouse event to canvas coordinates.
func (m EditModel) pointer(msg tea.MouseMsg) interact.Pointer {
	p := interact.Pointer{Pos: m.toCanvas(msg.X, msg.Y)}
	switch msg.Button {
	case tea.MouseButtonLeft:
		p.Button = interact.ButtonPrimary
	case tea.MouseButtonRight:
		p.Button = interact.ButtonSecondary
	case tea.MouseButtonMiddle:
		p.Button = interact.ButtonMiddle
	}
	if msg.Shift {
		p.Mods |= interact.ModShift
	}
	if msg.Alt {
		p.Mods |= interact.ModAlt
	}
	if msg.Ctrl {
		p.Mods |= interact.ModCtrl
	}
	return p
}

func (m *EditModel) do(fn func()) {
	if err := m.s.ed.Do(m.ctx, fn); err != nil {
		m.status, m.statusIsError = err.Error(), true
	}
}

func (m *EditModel) call(fn func() error) error { return m.s.ed.Call(m.ctx, fn) }

func (m *EditModel) report(err error, ok string) {
	switch {
	case err != nil:
		m.status, m.statusIsError = err.Error(), true
	case ok != "":
		m.status, m.statusIsError = ok, false
	}
}

func (m EditModel) saveSnapshot() tea.Cmd {
	if m.store == nil {
		return func() tea.Msg { return statusMsg{"no snapshot store", true} }
	}
	ctx, s, st := m.ctx, m.s, m.store
	return func() tea.Msg {
		var snap *store.Snapshot
		if err := s.ed.Do(ctx, func() { snap = s.ed.Snapshot(s.name) }); err != nil {
			return statusMsg{err.Error(), true}
		}
		if err := st.Put(ctx, snap); err != nil {
			return statusMsg{err.Error(), true}
		}
		return statusMsg{fmt.Sprintf("saved snapshot %s (%d nodes)", snap.Name, len(snap.Nodes)), false}
	}
}

func (m EditModel) writeDocument() tea.Cmd {
	if m.remote {
		return func() tea.Msg { return statusMsg{"the model is remote", true} }
	}
	s := m.s
	return func() tea.Msg {
		path := s.path
		if path == "" {
			path = s.name + ".yaml"
		}
		if err := model.Snapshot(s.name, s.model).WriteFile(path); err != nil {
			return statusMsg{err.Error(), true}
		}
		return statusMsg{"wrote " + path, false}
	}
}

// lockSelected locks the anchors of every arc into a selected node.
func lockSelected(ed *engine.Editor) error {
	for _, n := range ed.State().Selected() {
		for _, l := range ed.State().LinksOf(n) {
			if l.Target != n || l.Provisional {
				continue
			}
			if err := ed.LockAnchor(l.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m EditModel) selectedIDs() []string {
	if m.view.frame == nil {
		return nil
	}
	var ids []string
	for _, n := range m.view.frame.Nodes {
		if n.Selected {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (m EditModel) focusables() []focusable {
	var out []focusable
	for _, f := range m.view.forms {
		for _, e := range f.Ordered() {
			if e.Active {
				out = append(out, focusable{form: f.EntityID(), elem: e})
			}
		}
	}
	return out
}

func (m EditModel) focused() (focusable, bool) {
	fs := m.focusables()
	if m.focus < 0 || m.focus >= len(fs) {
		return focusable{}, false
	}
	return fs[m.focus], true
}

func (m *EditModel) cycleFocus() {
	n := len(m.focusables())
	m.focus++
	if m.focus >= n {
		m.focus = -1
	}
	m.input = ""
	if f, ok := m.focused(); ok && f.elem.Type == model.FormText {
		m.input = f.elem.Value
	}
}

// =============================================================================
// Coordinates
// =============================================================================

func (m EditModel) canvasCells() (cols, rows int) {
	cols, rows = m.width, m.height-chromeRows
	if len(m.view.forms) > 0 {
		cols -= panelWidth
	}
	return max(cols, 1), max(rows, 1)
}

// toCanvas maps the centre of a cell to canvas coordinates.
func (m EditModel) toCanvas(x, y int) geom.Point {
	cols, rows := m.canvasCells()
	return geom.Point{
		X: (float64(x) + 0.5) * m.canvasW / float64(cols),
		Y: (float64(y) + 0.5) * m.canvasH / float64(rows),
	}
}

// toCell maps canvas coordinates to a cell.
func (m EditModel) toCell(x, y float64) (int, int) {
	cols, rows := m.canvasCells()
	return int(math.Floor(x * float64(cols) / m.canvasW)), int(math.Floor(y * float64(rows) / m.canvasH))
}

// =============================================================================
// View
// =============================================================================

// View implements tea.Model.
func (m EditModel) View() string {
	if m.width == 0 {
		return ""
	}
	cols, rows := m.canvasCells()
	canvas := m.drawCanvas(cols, rows)
	if len(m.view.forms) > 0 {
		canvas = lipgloss.JoinHorizontal(lipgloss.Top, canvas, m.drawForms(rows))
	}

	var b strings.Builder
	b.WriteString(canvas)
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("drag: link/node  right-drag: move  c commit  x discard  space layout  L lock  s save  w write  y copy  tab forms  q quit"))
	return b.String()
}

func (m EditModel) statusLine() string {
	layout := "layout off"
	if m.view.running {
		layout = "layout on"
	}
	parts := []string{StyleTitle.Render(m.s.name), m.view.mode.String(), layout}
	if f := m.view.frame; f != nil {
		parts = append(parts, fmt.Sprintf("%d nodes · %d arcs", len(f.Nodes), len(f.Links)))
	}
	if m.view.pending > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d pending", m.view.pending)))
	}
	line := statusBarStyle.Render(strings.Join(parts, "  "))
	if m.status != "" {
		style := StyleSuccess
		if m.statusIsError {
			style = StyleError
		}
		line += "  " + style.Render(m.status)
	}
	return line
}

func (m EditModel) drawForms(rows int) string {
	var b strings.Builder
	focused, hasFocus := m.focused()
	for i, f := range m.view.forms {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(StyleTitle.Render(f.EntityID()))
		for _, e := range f.Ordered() {
			b.WriteString("\n")
			isFocused := hasFocus && focused.form == f.EntityID() && focused.elem.ID == e.ID
			var line string
			switch e.Type {
			case model.FormButton:
				line = "[ " + e.Name + " ]"
			default:
				value := e.Value
				if isFocused {
					value = m.input + "▏"
				}
				line = e.Name + ": " + value
			}
			switch {
			case isFocused:
				line = focusStyle.Render(line)
			case !e.Active:
				line = StyleDim.Render(line)
			}
			b.WriteString(line)
		}
	}
	return panelStyle.Width(panelWidth - 2).Height(max(rows-2, 1)).Render(b.String())
}

type cellStyle uint8

const (
	cellPlain cellStyle = iota
	cellLink
	cellBand
	cellNode
	cellHighlighted
	cellSelected
	cellProvisional
	cellLabel
)

var cellStyles = map[cellStyle]lipgloss.Style{
	cellLink:        canvasLinkStyle,
	cellBand:        canvasBandStyle,
	cellNode:        canvasNodeStyle,
	cellHighlighted: canvasHighlightedStyle,
	cellSelected:    canvasSelectedStyle,
	cellProvisional: canvasProvisionalStyle,
	cellLabel:       canvasLabelStyle,
}

type cell struct {
	r     rune
	style cellStyle
}

// grid is a character canvas.
type grid struct {
	cols, rows int
	cells      []cell
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for i := range g.cells {
		g.cells[i] = cell{r: ' '}
	}
	return g
}

func (g *grid) set(x, y int, r rune, s cellStyle) {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return
	}
	g.cells[y*g.cols+x] = cell{r: r, style: s}
}

// free reports whether a label may be written at (x, y). Labels cover
// arcs but never nodes.
func (g *grid) free(x, y int) bool {
	if x < 0 || y < 0 || x >= g.cols || y >= g.rows {
		return false
	}
	switch g.cells[y*g.cols+x].style {
	case cellPlain, cellLink, cellBand:
		return true
	}
	return false
}

// text writes s from (x, y) over free cells.
func (g *grid) text(x, y int, s string, style cellStyle) {
	for _, r := range s {
		if g.free(x, y) {
			g.set(x, y, r, style)
		}
		x++
	}
}

// line draws a Bresenham line between two cells.
func (g *grid) line(x0, y0, x1, y1 int, r rune, s cellStyle) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		g.set(x0, y0, r, s)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (g *grid) String() string {
	var b strings.Builder
	for y := 0; y < g.rows; y++ {
		if y > 0 {
			b.WriteString("\n")
		}
		row := g.cells[y*g.cols : (y+1)*g.cols]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].style == row[i].style {
				run.WriteRune(row[j].r)
				j++
			}
			if st, ok := cellStyles[row[i].style]; ok {
				b.WriteString(st.Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			i = j
		}
	}
	return b.String()
}

func (m EditModel) drawCanvas(cols, rows int) string {
	g := newGrid(cols, rows)
	f := m.view.frame
	if f == nil {
		return g.String()
	}

	for _, l := range f.Links {
		x0, y0 := m.toCell(l.X1, l.Y1)
		x1, y1 := m.toCell(l.X2, l.Y2)
		style := cellLink
		if l.Provisional {
			style = cellProvisional
		}
		g.line(x0, y0, x1, y1, linkRune(l.X2-l.X1, l.Y2-l.Y1), style)
		g.set(x1, y1, arrowRune(l.X2-l.X1, l.Y2-l.Y1), style)
	}
	if b := f.Band; b != nil {
		x0, y0 := m.toCell(b.From.X, b.From.Y)
		x1, y1 := m.toCell(b.To.X, b.To.Y)
		g.line(x0, y0, x1, y1, '·', cellBand)
	}

	for _, n := range f.Nodes {
		style := cellNode
		switch {
		case n.Provisional:
			style = cellProvisional
		case n.Selected:
			style = cellSelected
		case n.Highlighted:
			style = cellHighlighted
		}
		cx, cy := m.toCell(n.X, n.Y)
		hx := int(n.Width / 2 * float64(cols) / m.canvasW)
		hy := int(n.Height / 2 * float64(rows) / m.canvasH)
		for y := cy - hy; y <= cy+hy; y++ {
			for x := cx - hx; x <= cx+hx; x++ {
				if n.Circle && !insideEllipse(x-cx, y-cy, hx, hy) {
					continue
				}
				r := '█'
				if n.Circle {
					r = '░'
				}
				g.set(x, y, r, style)
			}
		}
		if n.Circle {
			center := '○'
			if n.Token {
				center = '●'
			}
			g.set(cx, cy, center, style)
		}
	}
	for _, n := range f.Nodes {
		cx, cy := m.toCell(n.X, n.Y)
		hx := int(n.Width / 2 * float64(cols) / m.canvasW)
		g.text(cx+hx+2, cy, n.Name, cellLabel)
	}
	return g.String()
}

func insideEllipse(dx, dy, hx, hy int) bool {
	if hx == 0 || hy == 0 {
		return true
	}
	fx, fy := float64(dx)/float64(hx), float64(dy)/float64(hy)
	return fx*fx+fy*fy <= 1.0001
}

// linkRune picks a glyph for a segment with direction (dx, dy).
func linkRune(dx, dy float64) rune {
	switch a := math.Abs(math.Atan2(dy, dx)) * 180 / math.Pi; {
	case a < 22.5 || a > 157.5:
		return '─'
	case a > 67.5 && a < 112.5:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	}
	return '╱'
}

func arrowRune(dx, dy float64) rune {
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy >= 0 {
		return '▼'
	}
	return '▲'
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
