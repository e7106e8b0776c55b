package stmt

import "encoding/binary"

// BuildParse constructs a Parse ('P') frame for a synthetic Parse the
// rewriter injects ahead of a Bind that referenced a statement name the
// current backend connection hasn't prepared yet.
func BuildParse(name, query string, paramTypeOIDs []uint32) []byte {
	body := make([]byte, 0, len(name)+1+len(query)+1+2+4*len(paramTypeOIDs))
	body = append(body, name...)
	body = append(body, 0)
	body = append(body, query...)
	body = append(body, 0)
	body = binary.BigEndian.AppendUint16(body, uint16(len(paramTypeOIDs)))
	for _, oid := range paramTypeOIDs {
		body = binary.BigEndian.AppendUint32(body, oid)
	}

	frame := make([]byte, 5, 5+len(body))
	frame[0] = 'P'
	frame = append(frame, body...)
	binary.BigEndian.PutUint32(frame[1:5], uint32(4+len(body)))
	return frame
}
