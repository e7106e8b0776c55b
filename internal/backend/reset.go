package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/pgvault/pgvault/internal/stmt"
	"github.com/pgvault/pgvault/internal/wire"
)

// ResetSession runs DISCARD ALL on the backend to clear every prepared
// statement, portal, and session-local setting left behind by the previous
// lease, then bumps the epoch and empties both prepared-statement maps, so
// no statement name from before the reset is reported as prepared after it.
func (c *Connection) ResetSession() error {
	query := appendCString(nil, "DISCARD ALL")
	buf := make([]byte, 1+4+len(query))
	buf[0] = wire.TagQuery
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(query)))
	copy(buf[5:], query)

	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("sending DISCARD ALL: %w", err)
	}

	for {
		tag, payload, err := readBackendMessage(c.conn)
		if err != nil {
			return fmt.Errorf("reading DISCARD ALL response: %w", err)
		}
		switch tag {
		case wire.TagErrorResponse:
			return fmt.Errorf("DISCARD ALL failed: %s", extractErrorMessage(payload))
		case wire.TagReadyForQuery:
			c.mu.Lock()
			c.epoch++
			c.preparedBySignature = make(map[stmt.Fingerprint]string)
			c.signatureByName = make(map[string]stmt.Fingerprint)
			c.mu.Unlock()
			return nil
		default:
			// CommandComplete and the rest of the simple-query reply train
			// carry nothing the reset needs.
		}
	}
}
