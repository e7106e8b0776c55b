package backend

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const cancelRequestCode = 80877102

// SendCancelRequest opens a fresh connection to addr and issues a
// CancelRequest carrying the target backend's own (pid, secret) — the
// cancellation protocol requires a brand new connection per the wire
// specification, never the connection being cancelled.
func SendCancelRequest(ctx context.Context, addr string, pid, secret int32) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing %s for cancel request: %w", addr, err)
	}
	defer conn.Close()

	var buf [16]byte
	binary.BigEndian.PutUint32(buf[0:4], 16)
	binary.BigEndian.PutUint32(buf[4:8], cancelRequestCode)
	binary.BigEndian.PutUint32(buf[8:12], uint32(pid))
	binary.BigEndian.PutUint32(buf[12:16], uint32(secret))

	if _, err := conn.Write(buf[:]); err != nil {
		return fmt.Errorf("sending cancel request to %s: %w", addr, err)
	}
	return nil
}
