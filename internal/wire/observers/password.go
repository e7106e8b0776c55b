package observers

import (
	"unicode/utf8"

	"github.com/pgvault/pgvault/internal/wire"
)

// PasswordMessage is the plain cleartext/MD5-hash password response
// ('p' tag, a single NUL-terminated string).
type PasswordMessage struct {
	password string
}

func PeekPasswordMessage(buf []byte) (int, bool) {
	total, ok := wire.PeekTaggedFrame(buf, wire.TagPassword)
	if !ok {
		return 0, false
	}
	return total, true
}

func NewPasswordMessage(frame []byte) (*PasswordMessage, error) {
	meta, err := taggedMeta(frame, wire.TagPassword, "password_message")
	if err != nil {
		return nil, err
	}
	if meta.Len < 5 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "password_message"}
	}
	total := meta.TotalLen
	nul := wire.FindNUL(frame[5:total])
	if nul < 0 {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "password_message"}
	}
	if 5+nul+1 != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "password_message"}
	}
	raw := frame[5 : 5+nul]
	if !utf8.Valid(raw) {
		return nil, &ObserverError{Kind: ErrInvalidUTF8, Name: "password_message"}
	}
	return &PasswordMessage{password: unsafeBytesToString(raw)}, nil
}

func (p *PasswordMessage) Password() string { return p.password }

// SASLInitialResponse is the client's mechanism selection plus optional
// initial SASL payload.
type SASLInitialResponse struct {
	frame                 []byte
	mechanism             string
	initialResponseStart  int
	initialResponseLen    int32
}

func PeekSASLInitialResponse(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagPassword)
}

func NewSASLInitialResponse(frame []byte) (*SASLInitialResponse, error) {
	meta, err := taggedMeta(frame, wire.TagPassword, "sasl_initial_response")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	mechanism, n, err := readCStringNamed(frame, pos, total, "sasl_initial_response")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos+4 > total {
		return nil, &ObserverError{Kind: ErrUnexpectedEOF, Name: "sasl_initial_response"}
	}
	initialResponseLen := wire.BigEndianInt32(frame[pos:])
	pos += 4
	initialResponseStart := pos

	switch {
	case initialResponseLen == -1:
		if pos != total {
			return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "sasl_initial_response"}
		}
	case initialResponseLen < 0:
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "sasl_initial_response"}
	default:
		n := int(initialResponseLen)
		if pos+n != total {
			return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "sasl_initial_response"}
		}
	}

	return &SASLInitialResponse{
		frame:                frame,
		mechanism:            mechanism,
		initialResponseStart: initialResponseStart,
		initialResponseLen:   initialResponseLen,
	}, nil
}

func (s *SASLInitialResponse) Mechanism() string { return s.mechanism }

// InitialResponse returns (nil, false) when the client sent a -1 length
// (no initial response), otherwise the opaque payload aliasing the frame.
func (s *SASLInitialResponse) InitialResponse() ([]byte, bool) {
	if s.initialResponseLen < 0 {
		return nil, false
	}
	return s.frame[s.initialResponseStart:], true
}

// SASLResponse is a subsequent SASL round-trip message; its payload is
// opaque to the gateway.
type SASLResponse struct {
	data []byte
}

func PeekSASLResponse(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagPassword)
}

func NewSASLResponse(frame []byte) (*SASLResponse, error) {
	_, err := taggedMeta(frame, wire.TagPassword, "sasl_response")
	if err != nil {
		return nil, err
	}
	return &SASLResponse{data: frame[5:]}, nil
}

func (s *SASLResponse) Data() []byte { return s.data }

// GSSResponse carries an opaque GSSAPI token.
type GSSResponse struct {
	token []byte
}

func PeekGSSResponse(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagPassword)
}

func NewGSSResponse(frame []byte) (*GSSResponse, error) {
	_, err := taggedMeta(frame, wire.TagPassword, "gss_response")
	if err != nil {
		return nil, err
	}
	return &GSSResponse{token: frame[5:]}, nil
}

func (g *GSSResponse) Token() []byte { return g.token }

// SSPIResponse carries an opaque SSPI token; may be empty.
type SSPIResponse struct {
	payload []byte
}

func PeekSSPIResponse(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagPassword)
}

func NewSSPIResponse(frame []byte) (*SSPIResponse, error) {
	_, err := taggedMeta(frame, wire.TagPassword, "sspi_response")
	if err != nil {
		return nil, err
	}
	return &SSPIResponse{payload: frame[5:]}, nil
}

func (s *SSPIResponse) Payload() []byte { return s.payload }
