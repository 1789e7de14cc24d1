package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/petrisync/pkg/store"
)

func TestSnapshotCommands(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	for _, name := range []string{"mutex", "philosophers"} {
		snap := &store.Snapshot{Name: name, Nodes: []store.NodeState{{ID: "p1", X: 1, Y: 2, Pinned: true}}}
		if err := st.Put(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, c, "snapshot", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "mutex") || !strings.Contains(out, "philosophers") {
		t.Errorf("list output = %q", out)
	}

	out, err = execute(t, c, "snapshot", "show", "mutex", "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"pinned": true`) {
		t.Errorf("show output = %q", out)
	}

	if _, err := execute(t, c, "snapshot", "rm", "mutex"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Get(ctx, "mutex"); err == nil {
		t.Error("snapshot still present after delete")
	}
	if _, err := execute(t, c, "snapshot", "show", "mutex"); err == nil {
		t.Error("show of a deleted snapshot succeeded")
	}
}
