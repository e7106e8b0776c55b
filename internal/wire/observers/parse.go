package observers

import "github.com/pgvault/pgvault/internal/wire"

// Parse is a validated, zero-copy view of a Parse ('P') frame.
type Parse struct {
	frame []byte

	statement string
	query     string

	paramTypeCount    int
	paramTypeOidsStart int
}

func PeekParse(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagParse)
}

func NewParse(frame []byte) (*Parse, error) {
	meta, err := taggedMeta(frame, wire.TagParse, "parse")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	statement, n, err := readCStringNamed(frame, pos, total, "parse")
	if err != nil {
		return nil, err
	}
	pos += n

	query, n, err := readCStringNamed(frame, pos, total, "parse")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos+2 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "parse"}
	}
	signedCount := wire.BigEndianInt16(frame[pos:])
	if signedCount < 0 {
		return nil, &ObserverError{Kind: ErrInvalidCount, Name: "parse"}
	}
	paramTypeCount := int(signedCount)
	pos += 2

	paramTypeOidsStart := pos
	need := pos + 4*paramTypeCount
	if need > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "parse"}
	}
	pos = need

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "parse"}
	}

	return &Parse{
		frame:              frame,
		statement:          statement,
		query:              query,
		paramTypeCount:     paramTypeCount,
		paramTypeOidsStart: paramTypeOidsStart,
	}, nil
}

func (p *Parse) Statement() string     { return p.statement }
func (p *Parse) Query() string         { return p.query }
func (p *Parse) ParamTypeCount() int   { return p.paramTypeCount }

// ParamTypeOID returns the OID declared for the parameter at index; 0 means
// "unspecified, infer from context" per the wire protocol.
func (p *Parse) ParamTypeOID(index int) uint32 {
	off := p.paramTypeOidsStart + 4*index
	return wire.BigEndianUint32(p.frame[off:])
}

// ParamTypeOIDs materializes the OID list. Used only when building the
// statement fingerprint, which needs to hash them; every other caller should
// prefer ParamTypeOID to stay allocation-free.
func (p *Parse) ParamTypeOIDs() []uint32 {
	oids := make([]uint32, p.paramTypeCount)
	for i := range oids {
		oids[i] = p.ParamTypeOID(i)
	}
	return oids
}
