package stage

import (
	"testing"

	"github.com/pgvault/pgvault/internal/wire"
)

func TestSequenceTrackerSingleFrameStages(t *testing.T) {
	for _, st := range []Stage{Startup, Authenticating} {
		tr := NewSequenceTracker()
		tr.Push(wire.Startup, 42)
		frames, bytes, ok := tr.TakeUntilFlush(st)
		if !ok {
			t.Fatalf("stage %v: expected a boundary after a single pushed frame", st)
		}
		if frames != 1 || bytes != 42 {
			t.Fatalf("stage %v: got frames=%d bytes=%d, want 1/42", st, frames, bytes)
		}
		if tr.Count() != 0 {
			t.Fatalf("stage %v: expected the tracker to be drained after TakeUntilFlush", st)
		}
	}
}

func TestSequenceTrackerSingleFrameStagesEmpty(t *testing.T) {
	tr := NewSequenceTracker()
	if _, _, ok := tr.TakeUntilFlush(Startup); ok {
		t.Fatal("expected an empty tracker to report no flush boundary")
	}
}

func TestSequenceTrackerReadyFlushesOnQuery(t *testing.T) {
	tr := NewSequenceTracker()
	tr.Push(wire.Parse, 20)
	tr.Push(wire.Query, 15)
	tr.Push(wire.Bind, 30) // would belong to the next sequence

	frames, bytes, ok := tr.TakeUntilFlush(Ready)
	if !ok {
		t.Fatal("expected a boundary at the Query frame")
	}
	if frames != 2 || bytes != 35 {
		t.Fatalf("got frames=%d bytes=%d, want 2/35", frames, bytes)
	}
	if tr.Count() != 1 {
		t.Fatalf("expected 1 frame left over for the next sequence, got %d", tr.Count())
	}
}

func TestSequenceTrackerReadyNoBoundaryYet(t *testing.T) {
	tr := NewSequenceTracker()
	tr.Push(wire.Parse, 20)
	tr.Push(wire.Bind, 30)
	if _, _, ok := tr.TakeUntilFlush(Ready); ok {
		t.Fatal("expected no boundary before a Sync/Flush/Terminate/Query frame arrives")
	}
}

func TestSequenceTrackerReadyFlushesAtByteCeiling(t *testing.T) {
	tr := NewSequenceTracker()
	tr.Push(wire.Bind, MaxBytesBeforeFlush)
	frames, bytes, ok := tr.TakeUntilFlush(Ready)
	if !ok {
		t.Fatal("expected a boundary once accumulated bytes reach MaxBytesBeforeFlush")
	}
	if frames != 1 || bytes != MaxBytesBeforeFlush {
		t.Fatalf("got frames=%d bytes=%d, want 1/%d", frames, bytes, MaxBytesBeforeFlush)
	}
}

func TestSequenceTrackerReadyFlushesAtCountCeiling(t *testing.T) {
	tr := NewSequenceTracker()
	for i := 0; i < MaxCountBeforeFlush; i++ {
		tr.Push(wire.Bind, 1)
	}
	frames, _, ok := tr.TakeUntilFlush(Ready)
	if !ok {
		t.Fatal("expected a boundary once frame count reaches MaxCountBeforeFlush")
	}
	if frames != MaxCountBeforeFlush {
		t.Fatalf("frames = %d, want %d", frames, MaxCountBeforeFlush)
	}
}

func TestSequenceTrackerLenAndIsEmpty(t *testing.T) {
	tr := NewSequenceTracker()
	if !tr.IsEmpty() {
		t.Fatal("expected a fresh tracker to be empty")
	}
	tr.Push(wire.Query, 10)
	tr.Push(wire.Bind, 5)
	if tr.IsEmpty() {
		t.Fatal("expected tracker to report non-empty after Push")
	}
	if tr.Len() != 15 {
		t.Fatalf("Len() = %d, want 15", tr.Len())
	}
	if tr.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", tr.Count())
	}
}

func TestSequenceTrackerUnknownStage(t *testing.T) {
	tr := NewSequenceTracker()
	tr.Push(wire.Query, 10)
	if _, _, ok := tr.TakeUntilFlush(Stage(999)); ok {
		t.Fatal("expected an unknown stage to never report a flush boundary")
	}
}
