package observers

import "github.com/pgvault/pgvault/internal/wire"

// CloseTarget mirrors DescribeTarget — Close and Describe share the same
// target-byte-then-name body shape in the wire protocol.
type CloseTarget byte

const (
	ClosePortal    CloseTarget = 'P'
	CloseStatement CloseTarget = 'S'
)

// Close is a validated, zero-copy view of a Close ('C') frame.
type Close struct {
	target CloseTarget
	name   string
}

func PeekClose(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagClose)
}

func NewClose(frame []byte) (*Close, error) {
	meta, err := taggedMeta(frame, wire.TagClose, "close")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	if pos+1 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "close"}
	}
	target := CloseTarget(frame[pos])
	if target != ClosePortal && target != CloseStatement {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "close"}
	}
	pos++

	name, n, err := readCStringNamed(frame, pos, total, "close")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "close"}
	}

	return &Close{target: target, name: name}, nil
}

func (c *Close) Target() CloseTarget { return c.target }
func (c *Close) Name() string        { return c.name }
