package stage

import (
	"encoding/binary"
	"testing"

	"github.com/pgvault/pgvault/internal/wire"
)

func appendCStringTest(b []byte, s string) []byte {
	b = append(b, s...)
	return append(b, 0)
}

func startupMessage(user, database string) []byte {
	var body []byte
	body = appendCStringTest(body, "user")
	body = appendCStringTest(body, user)
	body = appendCStringTest(body, "database")
	body = appendCStringTest(body, database)
	body = append(body, 0)

	total := 8 + len(body)
	buf := make([]byte, 8, total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint32(buf[4:8], 3<<16)
	return append(buf, body...)
}

func TestPeekStartupRecognizesStartupMessage(t *testing.T) {
	buf := startupMessage("appuser", "appdb")
	found, ok := Peek(Startup, buf)
	if !ok {
		t.Fatal("expected Startup stage to recognize a real startup message")
	}
	if found.Type != wire.Startup || found.Len != len(buf) {
		t.Fatalf("found = %+v, want Type=Startup Len=%d", found, len(buf))
	}
}

func TestPeekStartupRecognizesSSLRequest(t *testing.T) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], 8)
	binary.BigEndian.PutUint32(buf[4:8], 80877103)
	found, ok := Peek(Startup, buf)
	if !ok || found.Type != wire.SSLRequest {
		t.Fatalf("found=%+v ok=%v, want SSLRequest", found, ok)
	}
}

func TestPeekStartupIncomplete(t *testing.T) {
	buf := startupMessage("appuser", "appdb")
	if _, ok := Peek(Startup, buf[:len(buf)-3]); ok {
		t.Fatal("expected a truncated startup message to fail to peek")
	}
}

func passwordFrame(password string) []byte {
	body := append([]byte(password), 0)
	frame := make([]byte, 5, 5+len(body))
	frame[0] = wire.TagPassword
	frame = append(frame, body...)
	binary.BigEndian.PutUint32(frame[1:5], uint32(4+len(body)))
	return frame
}

func saslInitialResponseFrame(mechanism string, initial []byte) []byte {
	var body []byte
	body = appendCStringTest(body, mechanism)
	lenField := make([]byte, 4)
	binary.BigEndian.PutUint32(lenField, uint32(len(initial)))
	body = append(body, lenField...)
	body = append(body, initial...)

	frame := make([]byte, 5, 5+len(body))
	frame[0] = wire.TagPassword
	frame = append(frame, body...)
	binary.BigEndian.PutUint32(frame[1:5], uint32(4+len(body)))
	return frame
}

func TestPeekAuthenticatingRecognizesPasswordMessage(t *testing.T) {
	buf := passwordFrame("hunter2")
	found, ok := Peek(Authenticating, buf)
	if !ok || found.Type != wire.PasswordMessage {
		t.Fatalf("found=%+v ok=%v, want PasswordMessage", found, ok)
	}
	if found.Len != len(buf) {
		t.Fatalf("Len = %d, want %d", found.Len, len(buf))
	}
}

func TestPeekAuthenticatingRecognizesSASLInitialResponse(t *testing.T) {
	buf := saslInitialResponseFrame("SCRAM-SHA-256", []byte("n,,n=,r=abc123"))
	found, ok := Peek(Authenticating, buf)
	if !ok || found.Type != wire.SASLInitialResponse {
		t.Fatalf("found=%+v ok=%v, want SASLInitialResponse", found, ok)
	}
}

func TestPeekAuthenticatingIncomplete(t *testing.T) {
	buf := passwordFrame("hunter2")
	if _, ok := Peek(Authenticating, buf[:len(buf)-2]); ok {
		t.Fatal("expected a truncated 'p'-tagged frame to fail to peek")
	}
}

func queryFrame(sql string) []byte {
	body := append([]byte(sql), 0)
	frame := make([]byte, 5, 5+len(body))
	frame[0] = wire.TagQuery
	frame = append(frame, body...)
	binary.BigEndian.PutUint32(frame[1:5], uint32(4+len(body)))
	return frame
}

func TestPeekReadyRecognizesQuery(t *testing.T) {
	buf := queryFrame("SELECT 1")
	found, ok := Peek(Ready, buf)
	if !ok || found.Type != wire.Query {
		t.Fatalf("found=%+v ok=%v, want Query", found, ok)
	}
	if found.Len != len(buf) {
		t.Fatalf("Len = %d, want %d", found.Len, len(buf))
	}
}

func TestPeekReadyRecognizesTerminate(t *testing.T) {
	buf := []byte{wire.TagTerminate, 0, 0, 0, 4}
	found, ok := Peek(Ready, buf)
	if !ok || found.Type != wire.Terminate {
		t.Fatalf("found=%+v ok=%v, want Terminate", found, ok)
	}
}

func TestPeekReadyUnknownTag(t *testing.T) {
	buf := []byte{'?', 0, 0, 0, 4}
	if _, ok := Peek(Ready, buf); ok {
		t.Fatal("expected an unrecognized Ready-stage tag to fail to peek")
	}
}

func TestPeekReadyIncomplete(t *testing.T) {
	buf := queryFrame("SELECT 1")
	if _, ok := Peek(Ready, buf[:len(buf)-1]); ok {
		t.Fatal("expected a truncated Ready-stage frame to fail to peek")
	}
}

func TestPeekUnknownStage(t *testing.T) {
	if _, ok := Peek(Stage(999), []byte{1, 2, 3, 4, 5, 6, 7, 8}); ok {
		t.Fatal("expected an unknown stage to fail to peek")
	}
}
