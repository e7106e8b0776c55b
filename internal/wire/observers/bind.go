// Package observers implements one zero-copy frame observer per PostgreSQL
// frontend frame kind. Each observer validates a complete tagged frame in
// Parse and exposes typed, allocation-free accessors over the original
// slice. None of them retain state beyond the frame they were built from.
package observers

import (
	"fmt"
	"unicode/utf8"

	"github.com/pgvault/pgvault/internal/wire"
)

// BindObserverErrorKind distinguishes the ways a Bind frame can fail to
// validate, mirroring the granular error surface of the other frame kinds.
type BindObserverErrorKind int

const (
	BindErrUnexpectedTag BindObserverErrorKind = iota
	BindErrUnexpectedLength
	BindErrUnexpectedEOF
	BindErrInvalidUTF8
	BindErrInvalidCount
	BindErrInvalidFormatCode
	BindErrInvalidParamLength
	BindErrParamFormatCountMismatch
)

// BindObserverError carries enough detail to log or test against without
// string-matching.
type BindObserverError struct {
	Kind     BindObserverErrorKind
	Count    int // InvalidCount / ParamFormatCountMismatch.count
	Expected int // ParamFormatCountMismatch.expected
	Code     int16
	Length   int32
}

func (e *BindObserverError) Error() string {
	switch e.Kind {
	case BindErrUnexpectedTag:
		return "bind: unexpected tag"
	case BindErrUnexpectedLength:
		return "bind: unexpected length"
	case BindErrUnexpectedEOF:
		return "bind: unexpected eof"
	case BindErrInvalidUTF8:
		return "bind: invalid utf8"
	case BindErrInvalidCount:
		return fmt.Sprintf("bind: invalid count %d", e.Count)
	case BindErrInvalidFormatCode:
		return fmt.Sprintf("bind: invalid format code %d", e.Code)
	case BindErrInvalidParamLength:
		return fmt.Sprintf("bind: invalid param length %d", e.Length)
	case BindErrParamFormatCountMismatch:
		return fmt.Sprintf("bind: param format count %d does not match param count %d", e.Count, e.Expected)
	default:
		return "bind: observer error"
	}
}

// ParamKind distinguishes the three shapes a bound parameter value can take.
type ParamKind int

const (
	ParamNull ParamKind = iota
	ParamText
	ParamBinary
)

// Param is a view over one bound parameter; Text/Binary alias the frame.
type Param struct {
	Kind   ParamKind
	Text   string
	Binary []byte
}

// Bind is a validated, zero-copy view of a Bind ('B') frame.
type Bind struct {
	frame []byte

	portal    string
	statement string

	paramFormatCount      int
	paramFormatCodesStart int

	paramCount      int
	paramValuesStart int

	resultFormatCount      int
	resultFormatCodesStart int
}

// PeekBind reports the total frame length if a complete Bind frame is
// present at the start of buf.
func PeekBind(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagBind)
}

// NewBind validates frame (which must be exactly one complete Bind frame,
// as produced by PeekBind) and builds a Bind observer over it.
func NewBind(frame []byte) (*Bind, error) {
	meta, err := wire.ParseTaggedFrame(frame, wire.TagBind)
	if err != nil {
		if err == wire.ErrUnexpectedTag {
			return nil, &BindObserverError{Kind: BindErrUnexpectedTag}
		}
		return nil, &BindObserverError{Kind: BindErrUnexpectedLength}
	}
	total := meta.TotalLen
	pos := 5

	portal, n, err := readCString(frame, pos, total)
	if err != nil {
		return nil, err
	}
	pos += n

	statement, n, err := readCString(frame, pos, total)
	if err != nil {
		return nil, err
	}
	pos += n

	if pos+2 > total {
		return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	paramFormatCount := int(wire.BigEndianUint16(frame[pos:]))
	pos += 2

	need := pos + 2*paramFormatCount
	if need > total {
		return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	paramFormatCodesStart := pos
	for i := 0; i < paramFormatCount; i++ {
		code := wire.BigEndianInt16(frame[paramFormatCodesStart+2*i:])
		if code != 0 && code != 1 {
			return nil, &BindObserverError{Kind: BindErrInvalidFormatCode, Code: code}
		}
	}
	pos = need

	if pos+2 > total {
		return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	signedParamCount := wire.BigEndianInt16(frame[pos:])
	if signedParamCount < 0 {
		return nil, &BindObserverError{Kind: BindErrInvalidCount, Count: int(signedParamCount)}
	}
	paramCount := int(signedParamCount)
	pos += 2

	paramValuesStart := pos

	if paramFormatCount > 1 && paramFormatCount != paramCount {
		return nil, &BindObserverError{
			Kind:     BindErrParamFormatCountMismatch,
			Count:    paramFormatCount,
			Expected: paramCount,
		}
	}

	for idx := 0; idx < paramCount; idx++ {
		if pos+4 > total {
			return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
		}
		ln := wire.BigEndianInt32(frame[pos:])
		pos += 4

		if ln == -1 {
			continue
		}
		if ln < -1 {
			return nil, &BindObserverError{Kind: BindErrInvalidParamLength, Length: ln}
		}

		n := int(ln)
		if pos+n > total {
			return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
		}

		var isBinary bool
		switch paramFormatCount {
		case 0:
			isBinary = false
		case 1:
			isBinary = wire.BigEndianInt16(frame[paramFormatCodesStart:]) == 1
		default:
			off := paramFormatCodesStart + 2*idx
			isBinary = wire.BigEndianInt16(frame[off:]) == 1
		}

		if !isBinary {
			if !utf8.Valid(frame[pos : pos+n]) {
				return nil, &BindObserverError{Kind: BindErrInvalidUTF8}
			}
		}

		pos += n
	}

	if pos+2 > total {
		return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	resultFormatCount := int(wire.BigEndianUint16(frame[pos:]))
	pos += 2

	resultFormatCodesStart := pos
	need = pos + 2*resultFormatCount
	if need > total {
		return nil, &BindObserverError{Kind: BindErrUnexpectedEOF}
	}
	for i := 0; i < resultFormatCount; i++ {
		code := wire.BigEndianInt16(frame[resultFormatCodesStart+2*i:])
		if code != 0 && code != 1 {
			return nil, &BindObserverError{Kind: BindErrInvalidFormatCode, Code: code}
		}
	}
	pos = need

	if pos != total {
		return nil, &BindObserverError{Kind: BindErrUnexpectedLength}
	}

	return &Bind{
		frame:                   frame,
		portal:                  portal,
		statement:               statement,
		paramFormatCount:        paramFormatCount,
		paramFormatCodesStart:   paramFormatCodesStart,
		paramCount:              paramCount,
		paramValuesStart:        paramValuesStart,
		resultFormatCount:       resultFormatCount,
		resultFormatCodesStart:  resultFormatCodesStart,
	}, nil
}

func (b *Bind) Portal() string    { return b.portal }
func (b *Bind) Statement() string { return b.statement }
func (b *Bind) ParamCount() int   { return b.paramCount }
func (b *Bind) ResultFormatCount() int { return b.resultFormatCount }

// ParamIsBinary reports the wire format code for the param at index; caller
// must ensure index < ParamCount().
func (b *Bind) ParamIsBinary(index int) bool {
	switch b.paramFormatCount {
	case 0:
		return false
	case 1:
		return wire.BigEndianInt16(b.frame[b.paramFormatCodesStart:]) == 1
	default:
		off := b.paramFormatCodesStart + 2*index
		return wire.BigEndianInt16(b.frame[off:]) == 1
	}
}

// ResultIsBinary reports the result-column format code at index. Out of
// range indices return false (text) rather than panicking — PostgreSQL
// clients legally omit trailing entries.
func (b *Bind) ResultIsBinary(index int) bool {
	switch b.resultFormatCount {
	case 0:
		return false
	case 1:
		return wire.BigEndianInt16(b.frame[b.resultFormatCodesStart:]) == 1
	default:
		if index >= b.resultFormatCount {
			return false
		}
		off := b.resultFormatCodesStart + 2*index
		return wire.BigEndianInt16(b.frame[off:]) == 1
	}
}

// ParamRaw returns the raw bytes of the parameter at index, or (nil, false)
// for SQL NULL. The slice aliases the frame.
func (b *Bind) ParamRaw(index int) ([]byte, bool) {
	pos := b.paramValuesStart
	for i := 0; i <= index; i++ {
		ln := wire.BigEndianInt32(b.frame[pos:])
		pos += 4
		if i == index {
			if ln < 0 {
				return nil, false
			}
			n := int(ln)
			return b.frame[pos : pos+n], true
		}
		if ln >= 0 {
			pos += int(ln)
		}
	}
	return nil, false
}

// ParamText returns the parameter at index decoded as a string; only valid
// to call when ParamIsBinary(index) is false (validated already in NewBind).
func (b *Bind) ParamText(index int) (string, bool) {
	raw, ok := b.ParamRaw(index)
	if !ok {
		return "", false
	}
	return unsafeBytesToString(raw), true
}

// Param returns the typed view for the parameter at index.
func (b *Bind) Param(index int) Param {
	raw, ok := b.ParamRaw(index)
	if !ok {
		return Param{Kind: ParamNull}
	}
	if b.ParamIsBinary(index) {
		return Param{Kind: ParamBinary, Binary: raw}
	}
	return Param{Kind: ParamText, Text: unsafeBytesToString(raw)}
}
