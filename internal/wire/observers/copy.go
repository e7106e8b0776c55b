package observers

import "github.com/pgvault/pgvault/internal/wire"

// CopyData carries an opaque chunk of COPY payload; the gateway never
// inspects it, only forwards it, so Data is the entire remainder of the
// frame.
type CopyData struct {
	data []byte
}

func PeekCopyData(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagCopyData)
}

func NewCopyData(frame []byte) (*CopyData, error) {
	_, err := taggedMeta(frame, wire.TagCopyData, "copy_data")
	if err != nil {
		return nil, err
	}
	return &CopyData{data: frame[5:]}, nil
}

func (c *CopyData) Data() []byte { return c.data }

// CopyFail carries the client-supplied reason a COPY was aborted.
type CopyFail struct {
	message string
}

func PeekCopyFail(buf []byte) (int, bool) {
	return wire.PeekTaggedFrame(buf, wire.TagCopyFail)
}

func NewCopyFail(frame []byte) (*CopyFail, error) {
	meta, err := taggedMeta(frame, wire.TagCopyFail, "copy_fail")
	if err != nil {
		return nil, err
	}
	total := meta.TotalLen
	pos := 5

	message, n, err := readCStringNamed(frame, pos, total, "copy_fail")
	if err != nil {
		return nil, err
	}
	pos += n

	if pos != total {
		return nil, &ObserverError{Kind: ErrUnexpectedLength, Name: "copy_fail"}
	}

	return &CopyFail{message: message}, nil
}

func (c *CopyFail) Message() string { return c.message }
