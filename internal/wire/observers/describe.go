package observers

import "github.com/pgvault/pgvault/internal/wire"

// DescribeTarget distinguishes the two objects a Describe frame can name.
type DescribeTarget byte

const (
	DescribePortal    DescribeTarget = 'P'
	DescribeStatement DescribeTarget = 'S'
)

// Describe is a validated, zero-copy view of a Describe ('D') frame.
type Describe struct {
	target DescribeTarget
	name   string
}

func PeekDescribe(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagDescribe)
}

func NewDescribe(frame []byte) (*Describe, error) {
	meta, err := taggedMeta(frame, wire.TagDescribe, "describe")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	if pos+1 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "describe"}
	}
	targetByte := frame[pos]
	target := DescribeTarget(targetByte)
	if target != DescribePortal && target != DescribeStatement {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "describe"}
	}
	pos++

	name, n, err := readCStringNamed(frame, pos, total, "describe")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "describe"}
	}

	return &Describe{target: target, name: name}, nil
}

func (d *Describe) Target() DescribeTarget { return d.target }
func (d *Describe) Name() string           { return d.name }
