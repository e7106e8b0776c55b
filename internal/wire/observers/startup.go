package observers

import (
	"unicode/utf8"

	"github.com/pgvault/pgvault/internal/wire"
)

const protocolVersion3 = 3 << 16

// Startup is a validated, zero-copy view of a Startup message: an untagged
// frame carrying the protocol version and a sequence of key/value string
// pairs, terminated by an empty key.
type Startup struct {
	frame       []byte
	paramsStart int
}

// PeekStartup reports the total frame length if a complete Startup message
// (protocol major version 3) is present at the start of buf.
func PeekStartup(buf []byte) (int, bool) {
	if len(buf) < 8 {
		return 0, false
	}
	ln := int(wire.BigEndianUint32(buf[0:4]))
	if len(buf) < ln {
		return 0, false
	}
	version := int32(wire.BigEndianUint32(buf[4:8]))
	if version>>16 != protocolMajor3 {
		return 0, false
	}
	return ln, true
}

const protocolMajor3 = 3

func NewStartup(frame []byte) (*Startup, error) {
	if len(frame) < 8 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "startup"}
	}
	ln := int(wire.BigEndianUint32(frame[0:4]))
	if len(frame) != ln {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "startup"}
	}
	version := int32(wire.BigEndianUint32(frame[4:8]))
	if version>>16 != protocolMajor3 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "startup"}
	}

	pos := 8
	for {
		rel := wire.FindNUL(frame[pos:ln])
		if rel < 0 {
			return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "startup"}
		}
		if !utf8.Valid(frame[pos : pos+rel]) {
			return nil, &ObserverError{Kind: ErrInvalidUTF8, Name: "startup"}
		}
		pos += rel + 1
		if rel == 0 {
			break // terminating NUL
		}
		rel = wire.FindNUL(frame[pos:ln])
		if rel < 0 {
			return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "startup"}
		}
		if !utf8.Valid(frame[pos : pos+rel]) {
			return nil, &ObserverError{Kind: ErrInvalidUTF8, Name: "startup"}
		}
		pos += rel + 1
	}

	if pos != ln {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "startup"}
	}

	return &Startup{frame: frame, paramsStart: 8}, nil
}

func (s *Startup) ProtocolVersion() int32 {
	return int32(wire.BigEndianUint32(s.frame[4:8]))
}

// Param looks up a startup parameter by key (e.g. "user", "database",
// "options"). Returns ("", false) if absent.
func (s *Startup) Param(key string) (string, bool) {
	pos := s.paramsStart
	for {
		rel := wire.FindNUL(s.frame[pos:])
		if rel < 0 || rel == 0 {
			return "", false
		}
		k := unsafeBytesToString(s.frame[pos : pos+rel])
		pos += rel + 1
		rel = wire.FindNUL(s.frame[pos:])
		if rel < 0 {
			return "", false
		}
		v := unsafeBytesToString(s.frame[pos : pos+rel])
		pos += rel + 1
		if k == key {
			return v, true
		}
	}
}

// Params materializes the full key/value set, copying each key and value.
// HandleStartup does not use it; it reads the keys it needs with Param.
func (s *Startup) Params() map[string]string {
	out := make(map[string]string)
	pos := s.paramsStart
	for {
		rel := wire.FindNUL(s.frame[pos:])
		if rel <= 0 {
			return out
		}
		k := string(s.frame[pos : pos+rel])
		pos += rel + 1
		rel = wire.FindNUL(s.frame[pos:])
		if rel < 0 {
			return out
		}
		v := string(s.frame[pos : pos+rel])
		pos += rel + 1
		out[k] = v
	}
}
