package stmt

// VirtualStatement is the client-visible record of a Parse this connection
// issued: the SQL and declared parameter types it asked for, and the
// fingerprint that SQL+types combination hashes to. The backend name this
// resolves to at Bind time lives on the backend connection's own maps, not
// here — a VirtualStatement is about what the client asked for, not which
// physical backend prepared statement currently serves it.
type VirtualStatement struct {
	Query         string
	ParamTypeOIDs []uint32
	Fingerprint   Fingerprint
}

// NewVirtualStatement builds a VirtualStatement from a Parse frame's fields.
func NewVirtualStatement(query string, paramTypeOIDs []uint32) *VirtualStatement {
	oids := make([]uint32, len(paramTypeOIDs))
	copy(oids, paramTypeOIDs)
	return &VirtualStatement{
		Query:         query,
		ParamTypeOIDs: oids,
		Fingerprint:   ComputeFingerprint(query, oids),
	}
}

// PendingParse records one Parse frame forwarded to the backend within the
// current sequence, in the order its ParseComplete is expected back, so
// the response rewriter can tell which ParseComplete frames the client
// actually asked for and which ones it injected itself.
type PendingParse struct {
	// ClientName is the name the client used to refer to this statement,
	// or "" for the unnamed statement. Informational only.
	ClientName string
	// Synthetic is true when the rewriter injected this Parse itself —
	// to prepare a statement ahead of a Bind that referenced it by a name
	// the current backend connection hadn't prepared yet — rather than
	// forwarding one the client sent. Its ParseComplete must be consumed
	// internally instead of relayed to the client.
	Synthetic bool
}
