package cli

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/matzehuels/petrisync/pkg/errors"
)

func TestRunCheck(t *testing.T) {
	const src = `entities:
  - {id: a0, type: arc, source: p1, target: t1}
  - {id: p1, type: place, name: free, position: "0,0"}
  - {id: t1, type: transition, name: enter, position: "12"}
  - {id: t2, type: transition}
  - {id: x1, type: widget, name: odd}
  - {id: p2, type: place, name: busy, position: "10:90"}
  - {id: a1, type: arc, source: p1, target: p2}
`
	c := newTestCLI(t)
	results, err := c.runCheck(writeFile(t, "bad.yaml", src))
	if err != nil {
		t.Fatalf("runCheck: %v", err)
	}

	want := map[string]errors.Code{
		"a0": errors.ErrCodeDanglingReference,
		"p1": "",
		"t1": errors.ErrCodeMalformedPosition,
		"t2": errors.ErrCodeIncompleteEntity,
		"x1": errors.ErrCodeUnknownEntityType,
		"p2": "",
		"a1": "",
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for _, r := range results {
		if r.Code != want[r.ID] {
			t.Errorf("%s: code = %q, want %q", r.ID, r.Code, want[r.ID])
		}
	}

	var out bytes.Buffer
	if failed := printCheck(&out, results); failed != 4 {
		t.Errorf("printCheck failed = %d, want 4", failed)
	}
	if !strings.Contains(out.String(), "DANGLING_REFERENCE") {
		t.Errorf("table does not list the dangling arc:\n%s", out.String())
	}
}

func TestCheckStrict(t *testing.T) {
	c := newTestCLI(t)
	good := writeFile(t, "good.yaml", testModel)
	if _, err := execute(t, c, "check", "--strict", good); err != nil {
		t.Errorf("check --strict on a valid model: %v", err)
	}

	bad := writeFile(t, "bad.yaml", "entities:\n  - {id: a0, type: arc, source: p1, target: t1}\n")
	var err error
	warning := captureStdout(t, func() { _, err = execute(t, c, "check", bad) })
	if err != nil {
		t.Errorf("check without --strict failed: %v", err)
	}
	if !strings.Contains(warning, "1 of 1 entities would be dropped") {
		t.Errorf("warning = %q", warning)
	}
	if _, err := execute(t, c, "check", "--strict", bad); err == nil {
		t.Error("check --strict accepted a dangling arc")
	}
}

// captureStdout returns what fn prints through the status helpers.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	out := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		out <- string(b)
	}()
	fn()
	w.Close()
	return <-out
}
