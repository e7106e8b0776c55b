package stage

import "github.com/pgvault/pgvault/internal/wire"

// Flush boundary targets. Ready-stage sequences are drained either at a
// protocol boundary frame (Sync/Flush/Terminate/Query) or once the
// accumulated batch would otherwise grow unbounded.
const (
	MaxBytesBeforeFlush = 4 * 1024
	MaxCountBeforeFlush = 10
)

// frameMeta is one entry in the tracker: just enough to compute flush
// boundaries and drain byte ranges, never the frame bytes themselves.
type frameMeta struct {
	messageType wire.MessageType
	len         int
}

// SequenceTracker accumulates frame metadata as frames are peeked off the
// inbox, and reports when a complete flushable sequence is ready.
type SequenceTracker struct {
	frames []frameMeta
}

// NewSequenceTracker returns an empty tracker.
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{frames: make([]frameMeta, 0, 16)}
}

// Push records one more frame at the tail of the tracker.
func (t *SequenceTracker) Push(messageType wire.MessageType, length int) {
	t.frames = append(t.frames, frameMeta{messageType: messageType, len: length})
}

// Len reports the total byte length of all tracked frames.
func (t *SequenceTracker) Len() int {
	n := 0
	for _, f := range t.frames {
		n += f.len
	}
	return n
}

// Count reports the number of tracked frames.
func (t *SequenceTracker) Count() int { return len(t.frames) }

// IsEmpty reports whether the tracker holds no frames.
func (t *SequenceTracker) IsEmpty() bool { return len(t.frames) == 0 }

// flushBoundary is how many leading frames (and bytes) make up the next
// complete sequence to hand to a stage handler.
type flushBoundary struct {
	frames int
	bytes  int
}

// TakeUntilFlush drains and returns the leading frame count and byte count
// of the next complete sequence, or (0, 0, false) if no boundary has been
// reached yet (the caller should read more bytes off the wire).
func (t *SequenceTracker) TakeUntilFlush(st Stage) (frames int, bytes int, ok bool) {
	b, found := t.findFlushBoundary(st)
	if !found {
		return 0, 0, false
	}
	t.frames = t.frames[b.frames:]
	return b.frames, b.bytes, true
}

func (t *SequenceTracker) findFlushBoundary(st Stage) (flushBoundary, bool) {
	switch st {
	case Startup, Authenticating:
		return t.findFlushBoundarySingle()
	case Ready:
		return t.findFlushBoundaryReady()
	default:
		return flushBoundary{}, false
	}
}

// findFlushBoundarySingle applies to Startup and Authenticating: both
// stages only ever admit exactly one frame per sequence, since the next
// frame's meaning always depends on how the gateway responds to the one
// before it.
func (t *SequenceTracker) findFlushBoundarySingle() (flushBoundary, bool) {
	if len(t.frames) == 0 {
		return flushBoundary{}, false
	}
	return flushBoundary{frames: 1, bytes: t.frames[0].len}, true
}

func (t *SequenceTracker) findFlushBoundaryReady() (flushBoundary, bool) {
	bytes := 0
	for i, f := range t.frames {
		bytes += f.len

		isBoundary := isReadyBoundary(f.messageType)
		isTooLarge := bytes >= MaxBytesBeforeFlush || i+1 >= MaxCountBeforeFlush

		if isBoundary || isTooLarge {
			return flushBoundary{frames: i + 1, bytes: bytes}, true
		}
	}
	return flushBoundary{}, false
}

func isReadyBoundary(mt wire.MessageType) bool {
	switch mt {
	case wire.Sync, wire.Flush, wire.Terminate, wire.Query:
		return true
	default:
		return false
	}
}
