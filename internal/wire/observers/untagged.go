package observers

import "github.com/pgvault/pgvault/internal/wire"

const (
	sslRequestCode    = 80877103
	gssEncRequestCode = 80877104
	cancelRequestCode = 80877102
)

// SSLRequest is the client's request to upgrade the connection to TLS
// before Startup. No body beyond the fixed 8-byte header.
type SSLRequest struct{}

func PeekSSLRequest(buf []byte) (int, bool) {
	if len(buf) < 8 {
		return 0, false
	}
	if wire.BigEndianUint32(buf[0:4]) != 8 {
		return 0, false
	}
	if wire.BigEndianUint32(buf[4:8]) != sslRequestCode {
		return 0, false
	}
	return 8, true
}

func NewSSLRequest(frame []byte) (*SSLRequest, error) {
	if len(frame) != 8 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "ssl_request"}
	}
	if wire.BigEndianUint32(frame[0:4]) != 8 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "ssl_request"}
	}
	if wire.BigEndianUint32(frame[4:8]) != sslRequestCode {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "ssl_request"}
	}
	return &SSLRequest{}, nil
}

// GSSEncRequest is the client's request to upgrade to GSSAPI encryption
// before Startup. Same shape as SSLRequest, different code.
type GSSEncRequest struct{}

func PeekGSSEncRequest(buf []byte) (int, bool) {
	if len(buf) < 8 {
		return 0, false
	}
	if wire.BigEndianUint32(buf[0:4]) != 8 {
		return 0, false
	}
	if wire.BigEndianUint32(buf[4:8]) != gssEncRequestCode {
		return 0, false
	}
	return 8, true
}

func NewGSSEncRequest(frame []byte) (*GSSEncRequest, error) {
	if len(frame) != 8 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "gssenc_request"}
	}
	if wire.BigEndianUint32(frame[0:4]) != 8 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "gssenc_request"}
	}
	if wire.BigEndianUint32(frame[4:8]) != gssEncRequestCode {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "gssenc_request"}
	}
	return &GSSEncRequest{}, nil
}

// CancelRequest identifies the backend process/secret pair the client
// wants canceled. Sent on a fresh, short-lived TCP connection, never on
// the stage-carrying connection it names.
type CancelRequest struct {
	pid    int32
	secret int32
}

func PeekCancelRequest(buf []byte) (int, bool) {
	if len(buf) < 16 {
		return 0, false
	}
	if wire.BigEndianUint32(buf[0:4]) != 16 {
		return 0, false
	}
	if wire.BigEndianUint32(buf[4:8]) != cancelRequestCode {
		return 0, false
	}
	return 16, true
}

func NewCancelRequest(frame []byte) (*CancelRequest, error) {
	if len(frame) != 16 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "cancel_request"}
	}
	if wire.BigEndianUint32(frame[0:4]) != 16 {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "cancel_request"}
	}
	if wire.BigEndianUint32(frame[4:8]) != cancelRequestCode {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "cancel_request"}
	}
	return &CancelRequest{
		pid:    wire.BigEndianInt32(frame[8:12]),
		secret: wire.BigEndianInt32(frame[12:16]),
	}, nil
}

func (c *CancelRequest) PID() int32    { return c.pid }
func (c *CancelRequest) Secret() int32 { return c.secret }
