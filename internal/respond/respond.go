// Package respond builds the gateway-originated backend-protocol frames
// the frontend side of the gateway sends back to a connected client:
// SSL negotiation, authentication challenges, and the startup completion
// sequence.
package respond

import (
	"encoding/binary"

	"github.com/pgvault/pgvault/internal/wire"
)

// SSLNo answers an SSLRequest with a single 'N' byte, the wire protocol's
// way of declining SSL negotiation.
func SSLNo() []byte {
	return []byte{'N'}
}

// AuthenticationCleartextPassword asks the client to send its password in
// the clear, as an AuthenticationCleartextPassword ('R', code 3) frame.
func AuthenticationCleartextPassword() []byte {
	return authFrame(3, nil)
}

// AuthenticationOk signals successful authentication.
func AuthenticationOk() []byte {
	return authFrame(0, nil)
}

func authFrame(code uint32, extra []byte) []byte {
	buf := make([]byte, 9+len(extra))
	buf[0] = wire.TagAuthentication
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+4+len(extra)))
	binary.BigEndian.PutUint32(buf[5:9], code)
	copy(buf[9:], extra)
	return buf
}

// ParameterStatus builds a 'S' ParameterStatus frame reporting one
// key/value pair a client expects at startup (server_version,
// client_encoding, and similar).
func ParameterStatus(key, value string) []byte {
	body := appendCString(appendCString(nil, key), value)
	buf := make([]byte, 5+len(body))
	buf[0] = wire.TagParameterStatus
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(body)))
	copy(buf[5:], body)
	return buf
}

// BackendKeyData reports the (pid, secret) pair the gateway itself mints
// for this client connection, used later to match an incoming
// CancelRequest back to it.
func BackendKeyData(pid, secret int32) []byte {
	buf := make([]byte, 13)
	buf[0] = wire.TagBackendKeyData
	binary.BigEndian.PutUint32(buf[1:5], 12)
	binary.BigEndian.PutUint32(buf[5:9], uint32(pid))
	binary.BigEndian.PutUint32(buf[9:13], uint32(secret))
	return buf
}

// TransactionStatus mirrors the ReadyForQuery status byte values.
type TransactionStatus byte

const (
	Idle       TransactionStatus = 'I'
	InBlock    TransactionStatus = 'T'
	InFailed   TransactionStatus = 'E'
)

// ReadyForQuery builds the 'Z' frame signaling the client may send its
// next request.
func ReadyForQuery(status TransactionStatus) []byte {
	buf := make([]byte, 6)
	buf[0] = wire.TagReadyForQuery
	binary.BigEndian.PutUint32(buf[1:5], 5)
	buf[5] = byte(status)
	return buf
}

func appendCString(b []byte, s string) []byte {
	b = append(b, s...)
	return append(b, 0)
}

// RowDescription builds a 'T' frame describing a result set of all-text
// columns, as used by the admin query surface's synthetic SHOW responses.
func RowDescription(columns []string) []byte {
	body := make([]byte, 0, 64)
	body = binary.BigEndian.AppendUint16(body, uint16(len(columns)))
	for _, name := range columns {
		body = appendCString(body, name)
		body = binary.BigEndian.AppendUint32(body, 0)  // table OID
		body = binary.BigEndian.AppendUint16(body, 0)  // column attr number
		body = binary.BigEndian.AppendUint32(body, 25) // type OID: text
		body = binary.BigEndian.AppendUint16(body, uint16(0xffff))
		body = binary.BigEndian.AppendUint32(body, uint32(0xffffffff))
		body = binary.BigEndian.AppendUint16(body, 0) // format code: text
	}
	buf := make([]byte, 5, 5+len(body))
	buf[0] = 'T'
	buf = append(buf, body...)
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(body)))
	return buf
}

// DataRow builds a 'D' frame for one row of all-text column values. A nil
// entry encodes SQL NULL.
func DataRow(values []*string) []byte {
	body := make([]byte, 0, 64)
	body = binary.BigEndian.AppendUint16(body, uint16(len(values)))
	for _, v := range values {
		if v == nil {
			body = binary.BigEndian.AppendUint32(body, 0xffffffff)
			continue
		}
		body = binary.BigEndian.AppendUint32(body, uint32(len(*v)))
		body = append(body, *v...)
	}
	buf := make([]byte, 5, 5+len(body))
	buf[0] = 'D'
	buf = append(buf, body...)
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(body)))
	return buf
}

// CommandComplete builds a 'C' frame reporting the completed command tag.
func CommandComplete(tag string) []byte {
	body := appendCString(nil, tag)
	buf := make([]byte, 5, 5+len(body))
	buf[0] = wire.TagCommandComplete
	buf = append(buf, body...)
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(body)))
	return buf
}
