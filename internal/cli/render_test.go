package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/petrisync/pkg/render"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"png", []string{"png"}},
		{"svg, dot,,json", []string{"svg", "dot", "json"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if err := validateFormats([]string{"svg", "pdf"}); err == nil {
		t.Error("validateFormats accepted pdf")
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "nets/mutex.yaml", "nets/mutex"},
		{"out/diagram.svg", "mutex.yaml", "out/diagram"},
		{"out/diagram.neato.svg", "mutex.yaml", "out/diagram"},
		{"out/diagram", "mutex.yaml", "out/diagram"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestRenderFormats(t *testing.T) {
	c := newTestCLI(t)
	input := writeFile(t, "mutex.yaml", testModel)
	base := filepath.Join(t.TempDir(), "out")

	if _, err := execute(t, c, "render", input, "-f", "svg,dot,json,png", "-o", base, "--ticks", "50"); err != nil {
		t.Fatalf("render: %v", err)
	}

	checks := map[string]func([]byte) bool{
		".svg":  func(b []byte) bool { return bytes.HasPrefix(b, []byte("<svg")) },
		".dot":  func(b []byte) bool { return bytes.Contains(b, []byte("digraph G")) },
		".png":  func(b []byte) bool { return bytes.HasPrefix(b, []byte("\x89PNG")) },
		".json": func(b []byte) bool { return json.Valid(b) },
	}
	for ext, ok := range checks {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			t.Errorf("%s: %v", ext, err)
			continue
		}
		if !ok(data) {
			t.Errorf("%s has unexpected content", ext)
		}
	}

	var f render.Frame
	data, _ := os.ReadFile(base + ".json")
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	if len(f.Nodes) != 3 || len(f.Links) != 2 {
		t.Errorf("frame has %d nodes, %d links; want 3, 2", len(f.Nodes), len(f.Links))
	}
}

func TestRenderRestoresSnapshot(t *testing.T) {
	c := newTestCLI(t)
	input := writeFile(t, "mutex.yaml", testModel)
	dir := t.TempDir()
	first, second := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")

	if _, err := execute(t, c, "render", input, "-f", "json", "-o", first, "--save", "--ticks", "30"); err != nil {
		t.Fatalf("render --save: %v", err)
	}
	st, err := c.openStore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := st.Get(context.Background(), "mutex"); err != nil {
		t.Fatalf("snapshot not saved: %v", err)
	}

	if _, err := execute(t, c, "render", input, "-f", "json", "-o", second); err != nil {
		t.Fatalf("render: %v", err)
	}

	a, b := readFrame(t, first), readFrame(t, second)
	for _, n := range a.Nodes {
		m, ok := b.Node(n.ID)
		if !ok {
			t.Fatalf("node %s missing after restore", n.ID)
		}
		if math.Abs(m.X-n.X) > 1e-6 || math.Abs(m.Y-n.Y) > 1e-6 {
			t.Errorf("node %s at (%.2f, %.2f), want (%.2f, %.2f)", n.ID, m.X, m.Y, n.X, n.Y)
		}
	}
}

func readFrame(t *testing.T, path string) *render.Frame {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var f render.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	return &f
}
