package observers

import "github.com/pgvault/pgvault/internal/wire"

// Sync, Flush, Terminate, and CopyDone carry no body at all — a bare tag
// plus the length field (always 4, i.e. "just the length field itself").
// They share one validation shape, parameterized by tag and name.

type Sync struct{}
type Flush struct{}
type Terminate struct{}
type CopyDone struct{}

func PeekSync(buf []byte) (int, bool)      { return peekFixedLen(buf, wire.TagSync) }
func PeekFlush(buf []byte) (int, bool)     { return peekFixedLen(buf, wire.TagFlush) }
func PeekTerminate(buf []byte) (int, bool) { return peekFixedLen(buf, wire.TagTerminate) }
func PeekCopyDone(buf []byte) (int, bool)  { return peekFixedLen(buf, wire.TagCopyDone) }

func NewSync(frame []byte) (*Sync, error) {
	if err := validateFixedLen(frame, wire.TagSync, "sync"); err != nil {
		return nil, err
	}
	return &Sync{}, nil
}

func NewFlush(frame []byte) (*Flush, error) {
	if err := validateFixedLen(frame, wire.TagFlush, "flush"); err != nil {
		return nil, err
	}
	return &Flush{}, nil
}

func NewTerminate(frame []byte) (*Terminate, error) {
	if err := validateFixedLen(frame, wire.TagTerminate, "terminate"); err != nil {
		return nil, err
	}
	return &Terminate{}, nil
}

func NewCopyDone(frame []byte) (*CopyDone, error) {
	if err := validateFixedLen(frame, wire.TagCopyDone, "copy_done"); err != nil {
		return nil, err
	}
	return &CopyDone{}, nil
}

func peekFixedLen(buf []byte, tag byte) (int, bool) {
	total, ok := wire.PeekTaggedFrame(buf, tag)
	if !ok {
		return 0, false
	}
	if total != 5 {
		return 0, false
	}
	return total, true
}

func validateFixedLen(frame []byte, tag byte, name string) error {
	meta, err := taggedMeta(frame, tag, name)
	if err != nil {
		return err
	}
	if meta.Len != 4 {
		return &ObserverError{Kind: ErrUnexpectedLength, Name: name}
	}
	return nil
}
