package diagram

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/petrisync/pkg/errors"
)

type slot struct{ id string }

func newSlotTable() *Table[*slot] {
	return NewTable(func(s *slot) string { return s.id })
}

func TestTableUpsert(t *testing.T) {
	tbl := newSlotTable()
	calls := 0
	mk := func(id string) func() *slot {
		return func() *slot { calls++; return &slot{id: id} }
	}

	a, created := tbl.Upsert("a", mk("a"))
	if !created || calls != 1 {
		t.Fatalf("first Upsert: created=%v calls=%d", created, calls)
	}
	again, created := tbl.Upsert("a", mk("a"))
	if created || calls != 1 {
		t.Errorf("second Upsert: created=%v calls=%d, want existing slot", created, calls)
	}
	if again != a {
		t.Error("second Upsert should return the same slot")
	}
	if i, _ := tbl.Index("a"); i != 0 {
		t.Errorf("Index(a) = %d, want 0", i)
	}
}

func TestTableRemovalCompaction(t *testing.T) {
	tbl := newSlotTable()
	for _, id := range []string{"A", "B", "C"} {
		tbl.Upsert(id, func() *slot { return &slot{id: id} })
	}
	if _, ok := tbl.Remove("B"); !ok {
		t.Fatal("Remove(B) reported missing")
	}

	tests := []struct {
		id   string
		want int
	}{
		{"A", 0},
		{"C", 1},
	}
	for _, tt := range tests {
		i, ok := tbl.Index(tt.id)
		if !ok || i != tt.want {
			t.Errorf("Index(%s) = %d,%v, want %d", tt.id, i, ok, tt.want)
		}
		if got := tbl.Slot(i).id; got != tt.id {
			t.Errorf("Slot(%d) = %s, want %s", i, got, tt.id)
		}
	}
	if tbl.Has("B") {
		t.Error("B still indexed after removal")
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d, want 2", tbl.Len())
	}
	if _, ok := tbl.Remove("B"); ok {
		t.Error("second Remove(B) should report missing")
	}
}

func TestTableInvariantUnderRandomOps(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	tbl := newSlotTable()
	shadow := map[string]bool{}

	for step := range 2000 {
		id := fmt.Sprintf("n%d", r.IntN(40))
		if r.IntN(3) == 0 {
			_, ok := tbl.Remove(id)
			if ok != shadow[id] {
				t.Fatalf("step %d: Remove(%s) = %v, shadow says %v", step, id, ok, shadow[id])
			}
			delete(shadow, id)
		} else {
			tbl.Upsert(id, func() *slot { return &slot{id: id} })
			shadow[id] = true
		}

		if err := tbl.Check(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if tbl.Len() != len(shadow) {
			t.Fatalf("step %d: Len = %d, want %d", step, tbl.Len(), len(shadow))
		}
		for i, got := range tbl.IDs() {
			if j, _ := tbl.Index(got); j != i {
				t.Fatalf("step %d: Index(%s) = %d, slot %d", step, got, j, i)
			}
		}
	}
}

func TestTableCheckDetectsCorruption(t *testing.T) {
	tbl := newSlotTable()
	tbl.Upsert("a", func() *slot { return &slot{id: "a"} })
	tbl.Upsert("b", func() *slot { return &slot{id: "b"} })

	tbl.index["a"] = 1
	if err := tbl.Check(); !errors.Is(err, errors.ErrCodeIndexCorruption) {
		t.Errorf("Check = %v, want INDEX_CORRUPTION", err)
	}
	tbl.index["a"] = 5
	if err := tbl.Check(); !errors.Is(err, errors.ErrCodeIndexCorruption) {
		t.Errorf("Check = %v, want INDEX_CORRUPTION", err)
	}
}
