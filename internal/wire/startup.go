package wire

// FoundMessage is the result of peeking a frame: its kind and total length
// on the wire, used to decide whether a full frame is buffered and how far
// to advance once it is consumed.
type FoundMessage struct {
	Type MessageType
	Len  int
}

// PeekStartupFamily recognizes the four untagged frames a client may send
// before the stage machine has negotiated a protocol version: SSLRequest,
// GSSEncRequest, CancelRequest, and the real Startup message. All four share
// the same header shape: a big-endian int32 total length, followed by a
// big-endian int32 "code" field. Returns (FoundMessage{}, false) if fewer
// than 8 bytes are buffered, or the code/length combination does not match
// a known startup-family frame.
func PeekStartupFamily(buf []byte) (FoundMessage, bool) {
	if len(buf) < 8 {
		return FoundMessage{}, false
	}
	ln := int(BigEndianUint32(buf[0:4]))
	code := int32(BigEndianUint32(buf[4:8]))

	switch {
	case ln == 8 && code == sslRequestCode:
		return FoundMessage{Type: SSLRequest, Len: ln}, true
	case ln == 8 && code == gssEncRequestCode:
		return FoundMessage{Type: GSSEncRequest, Len: ln}, true
	case ln == 16 && code == cancelRequestCode:
		if len(buf) < 16 {
			return FoundMessage{}, false
		}
		return FoundMessage{Type: CancelRequest, Len: ln}, true
	case (code >> 16) == protocolMajor3:
		if ln < 8 {
			return FoundMessage{}, false
		}
		if len(buf) < ln {
			return FoundMessage{}, false
		}
		return FoundMessage{Type: Startup, Len: ln}, true
	default:
		return FoundMessage{}, false
	}
}
