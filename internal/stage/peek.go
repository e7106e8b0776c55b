package stage

import (
	"github.com/pgvault/pgvault/internal/wire"
	"github.com/pgvault/pgvault/internal/wire/observers"
)

// Found mirrors wire.FoundMessage; re-exported here so callers only need to
// import this package to drive the peek/track/pull loop.
type Found = wire.FoundMessage

// Peek resolves the next frame in buf according to stage. It never
// allocates and never consumes; callers use the returned length to slice
// out the frame once the caller decides to materialize an observer for it.
func Peek(st Stage, buf []byte) (Found, bool) {
	switch st {
	case Startup:
		return wire.PeekStartupFamily(buf)
	case Authenticating:
		return peekAuthenticating(buf)
	case Ready:
		return peekReady(buf)
	default:
		return Found{}, false
	}
}

// peekAuthenticating resolves the ambiguous 'p'-tagged frame a client can
// send while authenticating. Five frame kinds share that tag:
// PasswordMessage, SASLInitialResponse, SASLResponse, GSSResponse, and
// SSPIResponse. Rather than guess from byte shape, each candidate's real
// validator is tried in order of specificity — most-structured first — and
// the first one whose constructor accepts wins. GSSResponse, SSPIResponse
// and SASLResponse all accept any payload, so they're tried last; in
// practice GSSResponse, the first of the three, takes every frame the two
// structured validators reject, and the checks after it are never reached.
func peekAuthenticating(buf []byte) (Found, bool) {
	total, ok := wire.PeekTaggedFrame(buf, wire.TagPassword)
	if !ok {
		return Found{}, false
	}
	frame := buf[:total]

	if _, err := observers.NewSASLInitialResponse(frame); err == nil {
		return Found{Type: wire.SASLInitialResponse, Len: total}, true
	}
	if _, err := observers.NewPasswordMessage(frame); err == nil {
		return Found{Type: wire.PasswordMessage, Len: total}, true
	}
	if _, err := observers.NewGSSResponse(frame); err == nil {
		return Found{Type: wire.GSSResponse, Len: total}, true
	}
	if _, err := observers.NewSSPIResponse(frame); err == nil {
		return Found{Type: wire.SSPIResponse, Len: total}, true
	}
	if _, err := observers.NewSASLResponse(frame); err == nil {
		return Found{Type: wire.SASLResponse, Len: total}, true
	}
	return Found{}, false
}

var readyTags = map[byte]wire.MessageType{
	wire.TagBind:         wire.Bind,
	wire.TagClose:        wire.Close,
	wire.TagCopyData:     wire.CopyData,
	wire.TagCopyDone:     wire.CopyDone,
	wire.TagCopyFail:     wire.CopyFail,
	wire.TagDescribe:     wire.Describe,
	wire.TagExecute:      wire.Execute,
	wire.TagFlush:        wire.Flush,
	wire.TagFunctionCall: wire.FunctionCall,
	wire.TagParse:        wire.Parse,
	wire.TagQuery:        wire.Query,
	wire.TagSync:         wire.Sync,
	wire.TagTerminate:    wire.Terminate,
}

func peekReady(buf []byte) (Found, bool) {
	if len(buf) < 5 {
		return Found{}, false
	}
	mt, known := readyTags[buf[0]]
	if !known {
		return Found{}, false
	}
	total, ok := wire.PeekTaggedFrame(buf, buf[0])
	if !ok {
		return Found{}, false
	}
	return Found{Type: mt, Len: total}, true
}
