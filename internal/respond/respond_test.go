package respond

import (
	"encoding/binary"
	"testing"
)

func TestSSLNo(t *testing.T) {
	if got := SSLNo(); len(got) != 1 || got[0] != 'N' {
		t.Fatalf("SSLNo() = %v, want a single 'N' byte", got)
	}
}

func TestAuthenticationOkAndCleartext(t *testing.T) {
	ok := AuthenticationOk()
	if ok[0] != 'R' {
		t.Fatalf("tag = %q, want 'R'", ok[0])
	}
	if code := binary.BigEndian.Uint32(ok[5:9]); code != 0 {
		t.Fatalf("AuthenticationOk code = %d, want 0", code)
	}

	challenge := AuthenticationCleartextPassword()
	if code := binary.BigEndian.Uint32(challenge[5:9]); code != 3 {
		t.Fatalf("AuthenticationCleartextPassword code = %d, want 3", code)
	}
}

func TestParameterStatus(t *testing.T) {
	frame := ParameterStatus("server_version", "16.1")
	if frame[0] != 'S' {
		t.Fatalf("tag = %q, want 'S'", frame[0])
	}
	declared := binary.BigEndian.Uint32(frame[1:5])
	if int(declared) != len(frame)-1 {
		t.Fatalf("length prefix = %d, want %d", declared, len(frame)-1)
	}
}

func TestBackendKeyData(t *testing.T) {
	frame := BackendKeyData(42, 99)
	if frame[0] != 'K' {
		t.Fatalf("tag = %q, want 'K'", frame[0])
	}
	pid := binary.BigEndian.Uint32(frame[5:9])
	secret := binary.BigEndian.Uint32(frame[9:13])
	if pid != 42 || secret != 99 {
		t.Fatalf("pid/secret = %d/%d, want 42/99", pid, secret)
	}
}

func TestReadyForQuery(t *testing.T) {
	frame := ReadyForQuery(InBlock)
	if frame[0] != 'Z' {
		t.Fatalf("tag = %q, want 'Z'", frame[0])
	}
	if frame[5] != byte(InBlock) {
		t.Fatalf("status byte = %q, want %q", frame[5], byte(InBlock))
	}
}

func TestRowDescriptionColumnCount(t *testing.T) {
	frame := RowDescription([]string{"a", "b", "c"})
	if frame[0] != 'T' {
		t.Fatalf("tag = %q, want 'T'", frame[0])
	}
	count := binary.BigEndian.Uint16(frame[5:7])
	if count != 3 {
		t.Fatalf("column count = %d, want 3", count)
	}
}

func TestDataRowWithNullValue(t *testing.T) {
	val := "hello"
	frame := DataRow([]*string{&val, nil})
	if frame[0] != 'D' {
		t.Fatalf("tag = %q, want 'D'", frame[0])
	}
	count := binary.BigEndian.Uint16(frame[5:7])
	if count != 2 {
		t.Fatalf("value count = %d, want 2", count)
	}
	firstLen := binary.BigEndian.Uint32(frame[7:11])
	if int(firstLen) != len(val) {
		t.Fatalf("first value length = %d, want %d", firstLen, len(val))
	}
	nullMarker := binary.BigEndian.Uint32(frame[11+len(val) : 15+len(val)])
	if nullMarker != 0xffffffff {
		t.Fatalf("null marker = %x, want 0xffffffff", nullMarker)
	}
}

func TestCommandComplete(t *testing.T) {
	frame := CommandComplete("SELECT 1")
	if frame[0] != 'C' {
		t.Fatalf("tag = %q, want 'C'", frame[0])
	}
	declared := binary.BigEndian.Uint32(frame[1:5])
	if int(declared) != len(frame)-1 {
		t.Fatalf("length prefix = %d, want %d", declared, len(frame)-1)
	}
}
