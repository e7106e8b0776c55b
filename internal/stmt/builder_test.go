package stmt

import (
	"encoding/binary"
	"testing"
)

// declaredLength reads the big-endian length field of a tagged frame.
func declaredLength(frame []byte) uint32 {
	return binary.BigEndian.Uint32(frame[1:5])
}

// cstringAt returns the NUL-terminated string that starts at pos in frame.
func cstringAt(frame []byte, pos int) string {
	end := pos
	for frame[end] != 0 {
		end++
	}
	return string(frame[pos:end])
}

func TestBuildParseFrameShape(t *testing.T) {
	frame := BuildParse("ps_0_1", "SELECT $1", []uint32{23})

	if frame[0] != 'P' {
		t.Fatalf("tag = %q, want 'P'", frame[0])
	}
	if declaredLength(frame) != uint32(len(frame)-1) {
		t.Fatalf("length prefix = %d, want %d", declaredLength(frame), len(frame)-1)
	}
	if got := cstringAt(frame, 5); got != "ps_0_1" {
		t.Fatalf("name = %q, want ps_0_1", got)
	}
	queryStart := 5 + len("ps_0_1") + 1
	if got := cstringAt(frame, queryStart); got != "SELECT $1" {
		t.Fatalf("query = %q, want \"SELECT $1\"", got)
	}
}

func TestBuildParseFrameNoParamTypes(t *testing.T) {
	frame := BuildParse("", "SELECT 1", nil)
	if got := cstringAt(frame, 5); got != "" {
		t.Fatalf("unnamed statement name = %q, want empty", got)
	}
	if declaredLength(frame) != uint32(len(frame)-1) {
		t.Fatalf("length prefix = %d, want %d", declaredLength(frame), len(frame)-1)
	}
}

func TestNewVirtualStatementFingerprintMatchesComputeFingerprint(t *testing.T) {
	vs := NewVirtualStatement("SELECT $1", []uint32{23})
	want := ComputeFingerprint("SELECT $1", []uint32{23})
	if vs.Fingerprint != want {
		t.Fatal("NewVirtualStatement's fingerprint should match ComputeFingerprint on the same inputs")
	}
	if vs.Query != "SELECT $1" {
		t.Fatalf("Query = %q, want \"SELECT $1\"", vs.Query)
	}
}

func TestNewVirtualStatementCopiesParamSlice(t *testing.T) {
	oids := []uint32{23, 25}
	vs := NewVirtualStatement("SELECT $1, $2", oids)
	oids[0] = 999
	if vs.ParamTypeOIDs[0] == 999 {
		t.Fatal("NewVirtualStatement should copy the parameter type slice, not alias the caller's")
	}
}
