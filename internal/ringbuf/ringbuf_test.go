package ringbuf

import (
	"fmt"
	"testing"
	"time"

	"trading-agent/internal/model"
)

func entry(i int) model.LogEntry {
	return model.LogEntry{
		TS:      time.Date(2026, 3, 5, 10, 0, i, 0, time.UTC),
		Level:   model.LogInfo,
		Message: fmt.Sprintf("entry %d", i),
	}
}

func TestPushAndSnapshotOrder(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		r.Push(entry(i))
	}

	snap := r.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("len = %d, want 5", len(snap))
	}
	for i, e := range snap {
		if e.Message != fmt.Sprintf("entry %d", i) {
			t.Fatalf("snap[%d] = %q", i, e.Message)
		}
	}
}

func TestOverflowEvictsOldest(t *testing.T) {
	r := New(4)
	for i := 0; i < 10; i++ {
		r.Push(entry(i))
	}

	if r.Len() != 4 {
		t.Fatalf("len = %d, want 4", r.Len())
	}
	if r.Evicted() != 6 {
		t.Fatalf("evicted = %d, want 6", r.Evicted())
	}

	snap := r.Snapshot()
	for i, want := range []int{6, 7, 8, 9} {
		if snap[i].Message != fmt.Sprintf("entry %d", want) {
			t.Fatalf("snap[%d] = %q, want entry %d", i, snap[i].Message, want)
		}
	}
}

func TestCapacityIsExact(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 3: 3, 50: 50, 64: 64}
	for in, want := range cases {
		if got := New(in).Cap(); got != want {
			t.Fatalf("New(%d).Cap() = %d, want %d", in, got, want)
		}
	}

	// A 50-entry ring really retains 50, not the next power of two.
	r := New(50)
	for i := 0; i < 80; i++ {
		r.Push(entry(i))
	}
	if r.Len() != 50 {
		t.Fatalf("len = %d, want 50", r.Len())
	}
	snap := r.Snapshot()
	if snap[0].Message != "entry 30" || snap[49].Message != "entry 79" {
		t.Fatalf("window = %q .. %q", snap[0].Message, snap[49].Message)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New(4)
	r.Push(entry(0))
	snap := r.Snapshot()
	snap[0].Message = "mutated"
	if r.Snapshot()[0].Message != "entry 0" {
		t.Fatal("snapshot aliases ring storage")
	}
}
