package observers

import "github.com/pgvault/pgvault/internal/wire"

// Query is a validated, zero-copy view of a simple Query ('Q') frame.
type Query struct {
	query string
}

func PeekQuery(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagQuery)
}

func NewQuery(frame []byte) (*Query, error) {
	meta, err := taggedMeta(frame, wire.TagQuery, "query")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	query, n, err := readCStringNamed(frame, pos, total, "query")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "query"}
	}

	return &Query{query: query}, nil
}

func (q *Query) Query() string { return q.query }
