package observers

import (
	"unicode/utf8"

	"github.com/pgvault/pgvault/internal/wire"
)

// FunctionCall is a validated, zero-copy view of a FunctionCall ('F')
// frame — the legacy fastpath call interface. pgvault forwards these
// untouched; it never rewrites a function OID.
type FunctionCall struct {
	frame []byte

	oid int32

	paramFormatCount      int
	paramFormatCodesStart int

	paramCount       int
	paramValuesStart int

	resultFormatCode int16
}

func PeekFunctionCall(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagFunctionCall)
}

func NewFunctionCall(frame []byte) (*FunctionCall, error) {
	meta, err := taggedMeta(frame, wire.TagFunctionCall, "function_call")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	if pos+4 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
	}
	oid := wire.BigEndianInt32(frame[pos:])
	pos += 4

	if pos+2 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
	}
	paramFormatCount := int(wire.BigEndianUint16(frame[pos:]))
	pos += 2

	need := pos + 2*paramFormatCount
	if need > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
	}
	paramFormatCodesStart := pos
	for i := 0; i < paramFormatCount; i++ {
		code := wire.BigEndianInt16(frame[paramFormatCodesStart+2*i:])
		if code != 0 && code != 1 {
			return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "function_call"}
		}
	}
	pos = need

	if pos+2 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
	}
	signedCount := wire.BigEndianInt16(frame[pos:])
	if signedCount < 0 {
		return nil, &ObserverError{Kind: ErrInvalidCount, Name: "function_call"}
	}
	paramCount := int(signedCount)
	pos += 2

	paramValuesStart := pos

	if paramFormatCount > 1 && paramFormatCount != paramCount {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "function_call"}
	}

	for idx := 0; idx < paramCount; idx++ {
		if pos+4 > total {
			return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
		}
		ln := wire.BigEndianInt32(frame[pos:])
		pos += 4
		if ln == -1 {
			continue
		}
		if ln < -1 {
			return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "function_call"}
		}
		n := int(ln)
		if pos+n > total {
			return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
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
				return nil, &ObserverError{Kind: ErrInvalidUTF8, Name: "function_call"}
			}
		}
		pos += n
	}

	if pos+2 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "function_call"}
	}
	resultFormatCode := wire.BigEndianInt16(frame[pos:])
	if resultFormatCode != 0 && resultFormatCode != 1 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "function_call"}
	}
	pos += 2

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "function_call"}
	}

	return &FunctionCall{
		frame:                  frame,
		oid:                    oid,
		paramFormatCount:       paramFormatCount,
		paramFormatCodesStart:  paramFormatCodesStart,
		paramCount:             paramCount,
		paramValuesStart:       paramValuesStart,
		resultFormatCode:       resultFormatCode,
	}, nil
}

func (f *FunctionCall) OID() int32              { return f.oid }
func (f *FunctionCall) ParamCount() int         { return f.paramCount }
func (f *FunctionCall) ResultIsBinary() bool    { return f.resultFormatCode == 1 }
