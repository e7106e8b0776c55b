// Package wire contains the zero-copy primitives for parsing PostgreSQL
// wire-protocol v3.0 frames out of an in-memory byte slice. Nothing in this
// package allocates or copies frame payloads; every accessor returns a slice
// aliasing the caller's buffer.
package wire

import "encoding/binary"

// TaggedFrameError enumerates the ways a tagged frame's header can fail to
// parse before any frame-specific body validation runs.
type TaggedFrameError int

const (
	// ErrUnexpectedTag means the byte at offset 0 did not match the tag the
	// caller asked to parse.
	ErrUnexpectedTag TaggedFrameError = iota
	// ErrUnexpectedLength means the declared length field is internally
	// inconsistent (less than 4, or the slice is shorter than declared).
	ErrUnexpectedLength
)

func (e TaggedFrameError) Error() string {
	switch e {
	case ErrUnexpectedTag:
		return "wire: unexpected tag"
	case ErrUnexpectedLength:
		return "wire: unexpected length"
	default:
		return "wire: tagged frame error"
	}
}

// TaggedFrameMeta describes a validated tagged-frame header: 1 tag byte,
// followed by a big-endian int32 length that counts itself but not the tag.
type TaggedFrameMeta struct {
	Tag      byte
	Len      int32 // the declared length field, including itself
	TotalLen int   // 1 (tag) + Len, i.e. the full frame size on the wire
}

// PeekTaggedFrame reports the total length of a complete tagged frame at the
// start of buf, if the tag matches and the full frame is present. It does not
// validate the frame body. Returns (0, false) if buf is too short to contain
// a header, or a full frame is not yet buffered.
func PeekTaggedFrame(buf []byte, tag byte) (int, bool) {
	if len(buf) < 5 {
		return 0, false
	}
	if buf[0] != tag {
		return 0, false
	}
	ln := int32(binary.BigEndian.Uint32(buf[1:5]))
	if ln < 4 {
		return 0, false
	}
	total := 1 + int(ln)
	if len(buf) < total {
		return 0, false
	}
	return total, true
}

// ParseTaggedFrame validates a tagged frame's header against an expected tag
// and returns its metadata. frame must be exactly one complete frame (as
// produced by PeekTaggedFrame).
func ParseTaggedFrame(frame []byte, tag byte) (TaggedFrameMeta, error) {
	if len(frame) < 5 {
		return TaggedFrameMeta{}, ErrUnexpectedLength
	}
	if frame[0] != tag {
		return TaggedFrameMeta{}, ErrUnexpectedTag
	}
	ln := int32(binary.BigEndian.Uint32(frame[1:5]))
	if ln < 4 {
		return TaggedFrameMeta{}, ErrUnexpectedLength
	}
	total := 1 + int(ln)
	if len(frame) != total {
		return TaggedFrameMeta{}, ErrUnexpectedLength
	}
	return TaggedFrameMeta{Tag: tag, Len: ln, TotalLen: total}, nil
}

// BigEndianUint16 / BigEndianInt16 / BigEndianInt32 read fixed-width
// big-endian integers starting at offset 0 of b. Callers are responsible for
// bounds-checking before calling; these never allocate or slice-copy.
func BigEndianUint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func BigEndianInt16(b []byte) int16   { return int16(binary.BigEndian.Uint16(b)) }
func BigEndianInt32(b []byte) int32   { return int32(binary.BigEndian.Uint32(b)) }
func BigEndianUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// FindNUL returns the index of the first NUL byte in b, or -1 if absent.
func FindNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
