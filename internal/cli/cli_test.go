package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/petrisync/internal/config"
	"github.com/matzehuels/petrisync/pkg/model"
)

const testModel = `name: mutex
entities:
  - {id: p1, type: place, name: free, position: "0,0", marking: true}
  - {id: t1, type: transition, name: enter, position: "100,0"}
  - {id: p2, type: place, name: busy}
  - {id: a1, type: arc, source: p1, target: t1}
  - {id: a2, type: arc, source: t1, target: p2}
  - id: f1
    type: form
    elements:
      - {id: f1-name, type: text, name: name, value: free, is_active: true}
      - {id: f1-ok, type: button, name: ok, is_active: true}
`

// newTestCLI returns a CLI whose snapshots live in a temporary directory.
func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(io.Discard, LogInfo)
	cfg := config.Default()
	cfg.Store.Backend = "file"
	cfg.Store.Dir = t.TempDir()
	c.cfg = cfg
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"edit", "render", "serve", "check", "snapshot", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}
}

func TestOpenSession(t *testing.T) {
	c := newTestCLI(t)
	path := writeFile(t, "mutex.yaml", testModel)

	s, err := c.openSession(path, sessionOptions{})
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer s.stop()

	if s.name != "mutex" {
		t.Errorf("name = %q, want mutex", s.name)
	}
	st := s.ed.State()
	if st.Nodes.Len() != 3 || st.Links.Len() != 2 {
		t.Errorf("diagram has %d nodes, %d links; want 3, 2", st.Nodes.Len(), st.Links.Len())
	}
	if got := dropped(s); got != 0 {
		t.Errorf("dropped = %d, want 0", got)
	}
}

func TestOpenSessionEmpty(t *testing.T) {
	c := newTestCLI(t)
	s, err := c.openSession("", sessionOptions{})
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer s.stop()
	if s.name != "untitled" || s.model.Len() != 0 {
		t.Errorf("empty session = %q with %d entities", s.name, s.model.Len())
	}
}

func TestDiagramName(t *testing.T) {
	tests := []struct {
		path string
		doc  *model.Document
		want string
	}{
		{"nets/mutex.yaml", &model.Document{Name: "lock"}, "lock"},
		{"nets/mutex.yaml", &model.Document{}, "mutex"},
		{"net.json", nil, "net"},
		{"", nil, "untitled"},
	}
	for _, tt := range tests {
		if got := diagramName(tt.path, tt.doc); got != tt.want {
			t.Errorf("diagramName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSettleStops(t *testing.T) {
	c := newTestCLI(t)
	s, err := c.openSession(writeFile(t, "m.yaml", testModel), sessionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.stop()

	n := settle(s.ed, 5)
	if n > 5 {
		t.Errorf("settle ran %d ticks, want at most 5", n)
	}
	if s.ed.Simulation().Running() {
		t.Error("simulation still running after settle")
	}
}
