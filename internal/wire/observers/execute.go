package observers

import "github.com/pgvault/pgvault/internal/wire"

// Execute is a validated, zero-copy view of an Execute ('E') frame.
type Execute struct {
	portal  string
	maxRows int32
}

func PeekExecute(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagExecute)
}

func NewExecute(frame []byte) (*Execute, error) {
	meta, err := taggedMeta(frame, wire.TagExecute, "execute")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	portal, n, err := readCStringNamed(frame, pos, total, "execute")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos+4 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "execute"}
	}
	maxRows := wire.BigEndianInt32(frame[pos:])
	pos += 4

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "execute"}
	}

	return &Execute{portal: portal, maxRows: maxRows}, nil
}

func (e *Execute) Portal() string  { return e.portal }
func (e *Execute) MaxRows() int32  { return e.maxRows }
