package backend

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/pgvault/pgvault/internal/wire"
)

// Credentials names the backend identity to authenticate as.
type Credentials struct {
	Username string
	Password string
	Database string
}

// Dial opens a TCP connection to addr and drives the PostgreSQL startup
// handshake to completion, returning a ready-to-query Connection. Only
// AuthenticationOk and AuthenticationCleartextPassword are supported;
// MD5 and SASL challenges are rejected, since shard credentials are
// expected to be cleartext-auth backends behind a private network.
func Dial(ctx context.Context, shard, addr string, timeout time.Duration, creds Credentials) (*Connection, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing shard %s at %s: %w", shard, addr, err)
	}

	if err := sendStartup(conn, creds); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending startup to shard %s: %w", shard, err)
	}

	params := make(map[string]string)
	var pid, secret int32

	for {
		tag, payload, err := readBackendMessage(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("reading handshake response from shard %s: %w", shard, err)
		}

		switch tag {
		case wire.TagAuthentication:
			if len(payload) < 4 {
				conn.Close()
				return nil, fmt.Errorf("shard %s: truncated authentication message", shard)
			}
			switch authType := binary.BigEndian.Uint32(payload[:4]); authType {
			case 0: // AuthenticationOk
				continue
			case 3: // AuthenticationCleartextPassword
				if err := sendPassword(conn, creds.Password); err != nil {
					conn.Close()
					return nil, fmt.Errorf("sending cleartext password to shard %s: %w", shard, err)
				}
			default:
				conn.Close()
				return nil, fmt.Errorf("shard %s: unsupported authentication method %d", shard, authType)
			}

		case wire.TagParameterStatus:
			key, val := splitCString(payload)
			if key != "" {
				params[key] = val
			}

		case wire.TagBackendKeyData:
			if len(payload) >= 8 {
				pid = int32(binary.BigEndian.Uint32(payload[:4]))
				secret = int32(binary.BigEndian.Uint32(payload[4:8]))
			}

		case wire.TagReadyForQuery:
			c := newConnection(conn, shard, params, pid, secret)
			slog.Debug("backend connection established", "shard", shard, "conn_id", c.ConnID(), "backend_pid", pid)
			return c, nil

		case wire.TagErrorResponse:
			conn.Close()
			return nil, fmt.Errorf("shard %s rejected startup: %s", shard, extractErrorMessage(payload))

		default:
			// NoticeResponse and anything else encountered during startup
			// is informational; keep reading.
		}
	}
}

func sendStartup(conn net.Conn, creds Credentials) error {
	var body []byte
	const protocolVersion3 = 3 << 16
	var ver [4]byte
	binary.BigEndian.PutUint32(ver[:], protocolVersion3)
	body = append(body, ver[:]...)
	body = appendCString(body, "user")
	body = appendCString(body, creds.Username)
	body = appendCString(body, "database")
	body = appendCString(body, creds.Database)
	body = append(body, 0)

	var msg [4]byte
	binary.BigEndian.PutUint32(msg[:], uint32(4+len(body)))
	_, err := conn.Write(append(msg[:], body...))
	return err
}

func sendPassword(conn net.Conn, password string) error {
	payload := append([]byte(password), 0)
	buf := make([]byte, 1+4+len(payload))
	buf[0] = wire.TagPassword
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(payload)))
	copy(buf[5:], payload)
	_, err := conn.Write(buf)
	return err
}

func appendCString(b []byte, s string) []byte {
	b = append(b, s...)
	return append(b, 0)
}

func splitCString(data []byte) (string, string) {
	for i, c := range data {
		if c == 0 {
			rest := data[i+1:]
			for j, c2 := range rest {
				if c2 == 0 {
					return string(data[:i]), string(rest[:j])
				}
			}
			return string(data[:i]), string(rest)
		}
	}
	return "", ""
}

func extractErrorMessage(payload []byte) string {
	for i := 0; i < len(payload); {
		fieldType := payload[i]
		if fieldType == 0 {
			break
		}
		i++
		end := i
		for end < len(payload) && payload[end] != 0 {
			end++
		}
		if fieldType == 'M' {
			return string(payload[i:end])
		}
		i = end + 1
	}
	return "unknown error"
}

// readBackendMessage reads one tagged backend frame off conn.
func readBackendMessage(conn net.Conn) (byte, []byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return 0, nil, err
	}
	tag := hdr[0]
	length := int(binary.BigEndian.Uint32(hdr[1:5]))
	if length < 4 {
		return 0, nil, fmt.Errorf("invalid backend message length %d", length)
	}
	payload := make([]byte, length-4)
	if len(payload) > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return 0, nil, err
		}
	}
	return tag, payload, nil
}
