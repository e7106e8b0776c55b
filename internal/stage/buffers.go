package stage

import (
	"io"
)

// scratchCapacityHint sizes the read growth step; chosen to cover a typical
// batched Ready-stage sequence without repeated reallocation.
const scratchCapacityHint = 4096

// Buffers holds one connection's pending inbound bytes (not yet forwarded),
// the tracker classifying them into frames, and the pending outbound bytes
// queued for the next flush. All byte storage here is append-only and
// slice-compacted; PullNextSequence hands each sequence out as a copy, so
// frame observers built over a pulled sequence stay valid after later
// reads and pulls.
type Buffers struct {
	inbox        []byte
	inboxTracker *SequenceTracker
	outbox       []byte
}

// NewBuffers returns an empty Buffers ready to read from a fresh
// connection.
func NewBuffers() *Buffers {
	return &Buffers{
		inbox:        make([]byte, 0, scratchCapacityHint),
		inboxTracker: NewSequenceTracker(),
		outbox:       make([]byte, 0, scratchCapacityHint),
	}
}

// ReadFrom reads once from r, growing the inbox as needed, and returns the
// number of bytes read. io.EOF (and any other error) is returned unwrapped
// so callers can distinguish a clean disconnect from an I/O failure.
func (b *Buffers) ReadFrom(r io.Reader) (int, error) {
	if cap(b.inbox)-len(b.inbox) < scratchCapacityHint {
		grown := make([]byte, len(b.inbox), len(b.inbox)+scratchCapacityHint)
		copy(grown, b.inbox)
		b.inbox = grown
	}
	free := b.inbox[len(b.inbox):cap(b.inbox)]
	n, err := r.Read(free)
	b.inbox = b.inbox[:len(b.inbox)+n]
	return n, err
}

// TrackNewInboxFrames peeks every complete frame currently sitting in the
// inbox (that hasn't already been tracked) and pushes its metadata onto the
// sequence tracker, stopping at the first incomplete or unrecognized frame.
func (b *Buffers) TrackNewInboxFrames(st Stage) {
	tracked := b.inboxTracker.Len()
	for {
		remaining := b.inbox[tracked:]
		found, ok := Peek(st, remaining)
		if !ok {
			return
		}
		b.inboxTracker.Push(found.Type, found.Len)
		tracked += found.Len
	}
}

// PullNextSequence drains the next complete, flushable sequence of frames
// from the inbox, returning a freshly allocated copy of its raw bytes and
// true, or
// (nil, false) if no full sequence has accumulated yet.
func (b *Buffers) PullNextSequence(st Stage) ([]byte, bool) {
	_, nBytes, ok := b.inboxTracker.TakeUntilFlush(st)
	if !ok {
		return nil, false
	}
	seq := make([]byte, nBytes)
	copy(seq, b.inbox[:nBytes])
	b.inbox = append(b.inbox[:0], b.inbox[nBytes:]...)
	return seq, true
}

// QueueResponse appends a gateway-originated frame (built by internal/respond
// or internal/pgerror) to the outbox.
func (b *Buffers) QueueResponse(response []byte) {
	b.outbox = append(b.outbox, response...)
}

// FlushTo writes and clears the outbox if it holds anything.
func (b *Buffers) FlushTo(w io.Writer) error {
	if len(b.outbox) == 0 {
		return nil
	}
	_, err := w.Write(b.outbox)
	b.outbox = b.outbox[:0]
	return err
}

