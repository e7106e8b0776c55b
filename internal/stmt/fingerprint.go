// Package stmt implements prepared-statement virtualization: computing a
// fingerprint for a parsed statement's SQL text and declared parameter
// types, and tracking the client-visible and backend-visible names that
// fingerprint maps to.
package stmt

import (
	"crypto/md5"
	"encoding/binary"
)

// Fingerprint identifies a statement by its SQL text and declared parameter
// types, independent of whatever name the client or backend gave it. Two
// Parse frames with identical SQL and parameter type OIDs produce the same
// fingerprint and can share one backend-prepared statement.
type Fingerprint [md5.Size]byte

// ComputeFingerprint hashes sql followed by a NUL separator and the
// parameter type OIDs in declaration order, each as a big-endian uint32.
// The NUL separator and fixed-width OID encoding keep "SELECT $1" with
// types [23] from colliding with "SELECT $1" followed by a differently
// typed empty tail.
func ComputeFingerprint(sql string, paramTypeOIDs []uint32) Fingerprint {
	h := md5.New()
	h.Write([]byte(sql))
	h.Write([]byte{0})
	var buf [4]byte
	for _, oid := range paramTypeOIDs {
		binary.BigEndian.PutUint32(buf[:], oid)
		h.Write(buf[:])
	}
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}
