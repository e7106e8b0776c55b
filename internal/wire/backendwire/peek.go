// Package backendwire peeks backend (PostgreSQL server-to-client) replies.
// The gateway only ever needs tag + length to know how far to advance and
// whether to special-case ReadyForQuery; it never decodes row data.
package backendwire

import "github.com/pgvault/pgvault/internal/wire"

// Frame is a peeked backend reply: its tag and the full length on the wire
// (1 + declared length).
type Frame struct {
	Tag      byte
	TotalLen int
}

// Peek returns the next backend frame if a complete one is buffered.
func Peek(buf []byte) (Frame, bool) {
	if len(buf) < 5 {
		return Frame{}, false
	}
	tag := buf[0]
	ln := wire.BigEndianUint32(buf[1:5])
	if ln < 4 {
		return Frame{}, false
	}
	total := 1 + int(ln)
	if len(buf) < total {
		return Frame{}, false
	}
	return Frame{Tag: tag, TotalLen: total}, true
}

// TransactionStatus reads the single status byte of a ReadyForQuery frame.
// Callers must already know frame.Tag == 'Z'.
func TransactionStatus(frame []byte) byte {
	if len(frame) < 6 {
		return 0
	}
	return frame[5]
}

const (
	TransactionIdle       = 'I'
	TransactionInBlock    = 'T'
	TransactionInFailed   = 'E'
)
