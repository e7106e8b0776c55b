package observers

import (
	"unicode/utf8"
	"unsafe"

	"github.com/pgvault/pgvault/internal/wire"
)

// ErrorKind is the shared taxonomy used by the simpler single-shape
// observers (every kind but Bind, which has its own richer enum because it
// has more distinct failure modes worth telling apart).
type ErrorKind int

const (
	ErrUnexpectedTag ErrorKind = iota
	ErrUnexpectedLength
	ErrUnexpectedEOF
	ErrInvalidUTF8
	ErrInvalidCount
)

// ObserverError is returned by every New* constructor in this package
// except NewBind.
type ObserverError struct {
	Kind ErrorKind
	Name string // frame kind, for logging ("parse", "describe", ...)
}

func (e *ObserverError) Error() string {
	switch e.Kind {
	case ErrUnexpectedTag:
		return e.Name + ": unexpected tag"
	case ErrUnexpectedLength:
		return e.Name + ": unexpected length"
	case ErrUnexpectedEOF:
		return e.Name + ": unexpected eof"
	case ErrInvalidUTF8:
		return e.Name + ": invalid utf8"
	case ErrInvalidCount:
		return e.Name + ": invalid count"
	default:
		return e.Name + ": observer error"
	}
}

func taggedMeta(frame []byte, tag byte, name string) (wire.TaggedFrameMeta, error) {
	meta, err := wire.ParseTaggedFrame(frame, tag)
	if err != nil {
		if err == wire.ErrUnexpectedTag {
			return meta, &ObserverError{Kind: ErrUnexpectedTag, Name: name}
		}
		return meta, &ObserverError{Kind: ErrUnexpectedLength, Name: name}
	}
	return meta, nil
}

// readCString reads a NUL-terminated string starting at pos within frame,
// bounded by total (the frame's declared total length). Returns the decoded
// string and the number of bytes consumed including the NUL.
func readCString(frame []byte, pos, total int) (string, int, error) {
	if pos > total {
		return "", 0, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	rel := wire.FindNUL(frame[pos:total])
	if rel < 0 {
		return "", 0, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	s := frame[pos : pos+rel]
	if !utf8.Valid(s) {
		return "", 0, &BindObserverError{Kind: BindErrInvalidUTF8}
	}
	return unsafeBytesToString(s), rel + 1, nil
}

// readCStringNamed is readCString but reports errors as *ObserverError
// (tagged with name) rather than *BindObserverError, for the non-Bind
// frame kinds.
func readCStringNamed(frame []byte, pos, total int, name string) (string, int, error) {
	if pos > total {
		return "", 0, &ObserverError{Kind: ErrUnexpectedEOF, Name: name}
	}
	rel := wire.FindNUL(frame[pos:total])
	if rel < 0 {
		return "", 0, &ObserverError{Kind: ErrUnexpectedEOF, Name: name}
	}
	s := frame[pos : pos+rel]
	if !utf8.Valid(s) {
		return "", 0, &ObserverError{Kind: ErrInvalidUTF8, Name: name}
	}
	return unsafeBytesToString(s), rel + 1, nil
}

// unsafeBytesToString borrows b as a string without copying. Safe here
// because every caller holds b for at most the lifetime of the frame it was
// sliced from, and frame observers never mutate their underlying buffer.
func unsafeBytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
