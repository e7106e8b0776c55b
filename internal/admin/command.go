// Package admin implements the gateway's admin query surface: a small set
// of SHOW/RELOAD/PAUSE/RESUME commands a client connected as the admin
// user can issue as ordinary simple-query text, answered entirely inside
// the gateway without ever reaching a backend shard.
package admin

import "strings"

// Command identifies one recognized admin statement.
type Command int

const (
	Unknown Command = iota
	ShowPools
	ShowClients
	ShowParseCacheStats
	Reload
	Pause
	Resume
)

// ParsedCommand is the result of recognizing one admin statement: which
// command, and — for PAUSE/RESUME — which shard it targets.
type ParsedCommand struct {
	Cmd   Command
	Shard string
}

// ParseCommand recognizes an admin command from query text. Only the first
// token is matched case-insensitively ("show", "Show", "SHOW" all work);
// everything after it — the SHOW target, and the shard name PAUSE/RESUME
// take — must match exactly, the same way the rest of this surface's
// keywords do.
func ParseCommand(query string) (ParsedCommand, bool) {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return ParsedCommand{}, false
	}

	switch strings.ToUpper(fields[0]) {
	case "SHOW":
		if len(fields) != 2 {
			return ParsedCommand{}, false
		}
		switch fields[1] {
		case "POOLS":
			return ParsedCommand{Cmd: ShowPools}, true
		case "CLIENTS":
			return ParsedCommand{Cmd: ShowClients}, true
		case "PARSE_CACHE_STATS":
			return ParsedCommand{Cmd: ShowParseCacheStats}, true
		default:
			return ParsedCommand{}, false
		}
	case "RELOAD":
		if len(fields) != 1 {
			return ParsedCommand{}, false
		}
		return ParsedCommand{Cmd: Reload}, true
	case "PAUSE":
		if len(fields) != 2 {
			return ParsedCommand{}, false
		}
		return ParsedCommand{Cmd: Pause, Shard: fields[1]}, true
	case "RESUME":
		if len(fields) != 2 {
			return ParsedCommand{}, false
		}
		return ParsedCommand{Cmd: Resume, Shard: fields[1]}, true
	default:
		return ParsedCommand{}, false
	}
}
