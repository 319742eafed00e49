// Package command implements the dispatch table that turns a decoded
// command vector into one or more encoded RESP reply frames.
package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"redislite/internal/config"
	"redislite/internal/keyspace"
	"redislite/internal/replication"
	"redislite/internal/resp"
)

// errInvalidCommand is the single error reply used for unknown commands,
// arity violations on known commands, and protocol parse failures - the
// executor deliberately does not distinguish these at the wire level.
var errInvalidCommand = resp.EncodeSimpleError("Invalid Command")

// Executor holds everything a command needs to run: the keyspace
// processor and the read-mostly replication/server info the INFO command
// exposes. NowMillis is overridable for tests; it defaults to the wall
// clock.
type Executor struct {
	Processor *keyspace.Processor
	Info      *config.Info
	ReplID    string
	NowMillis func() int64
}

// NewExecutor returns an Executor wired to processor and info.
func NewExecutor(processor *keyspace.Processor, info *config.Info, replID string, nowMillis func() int64) *Executor {
	return &Executor{Processor: processor, Info: info, ReplID: replID, NowMillis: nowMillis}
}

// Execute dispatches args (the decoded command vector) and returns the
// ordered list of encoded frames to write back to the connection. Every
// command but PSYNC returns exactly one frame.
func (e *Executor) Execute(args []string) [][]byte {
	if len(args) == 0 {
		return [][]byte{errInvalidCommand}
	}

	switch strings.ToUpper(args[0]) {
	case "PING":
		if len(args) != 1 {
			return [][]byte{errInvalidCommand}
		}
		return [][]byte{resp.EncodeSimpleString("PONG")}

	case "ECHO":
		if len(args) != 2 {
			return [][]byte{errInvalidCommand}
		}
		return [][]byte{resp.EncodeSimpleString(args[1])}

	case "SET":
		return [][]byte{e.execSet(args)}

	case "GET":
		if len(args) != 2 {
			return [][]byte{errInvalidCommand}
		}
		return [][]byte{e.execGet(args[1])}

	case "INFO":
		if len(args) != 2 {
			return [][]byte{errInvalidCommand}
		}
		return [][]byte{e.execInfo(args[1])}

	case "REPLCONF":
		if len(args) < 2 {
			return [][]byte{errInvalidCommand}
		}
		return [][]byte{resp.EncodeSimpleString("OK")}

	case "PSYNC":
		if len(args) != 3 {
			return [][]byte{errInvalidCommand}
		}
		return e.execPsync()

	default:
		return [][]byte{errInvalidCommand}
	}
}

// execSet implements SET key value [PX milliseconds]. The fifth argument
// pair is only accepted when argument index 3 is the literal (case
// insensitive) flag PX; anything else at that position is an arity/usage
// error, same as an unknown command.
func (e *Executor) execSet(args []string) []byte {
	switch len(args) {
	case 3:
		e.Processor.Set(args[1], []byte(args[2]), false, 0)
		return resp.EncodeSimpleString("OK")

	case 5:
		if !strings.EqualFold(args[3], "PX") {
			return errInvalidCommand
		}
		px, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return errInvalidCommand
		}
		now := e.now()
		e.Processor.Set(args[1], []byte(args[2]), true, now+px)
		return resp.EncodeSimpleString("OK")

	default:
		return errInvalidCommand
	}
}

func (e *Executor) execGet(key string) []byte {
	result := e.Processor.Get(key, e.now())
	if !result.Exists {
		return resp.EncodeNullBulkString()
	}
	return resp.EncodeBulkString(result.Value)
}

// execInfo formats the named section's entries as key:value lines
// joined by a bare '\n' (not '\r\n' - that join character lives inside
// the Bulk String payload, distinct from the frame's own CRLF framing)
// and wraps the result in a Bulk String.
func (e *Executor) execInfo(section string) []byte {
	entries := e.Info.Section(strings.ToLower(section))
	if entries == nil {
		return resp.EncodeBulkStringFromString("")
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s:%s", k, entries[k]))
	}
	return resp.EncodeBulkStringFromString(strings.Join(lines, "\n"))
}

// execPsync returns the two-frame full-resync response: a Simple String
// FULLRESYNC line, then a bare `$<len>\r\n<bytes>` header with no
// trailing CRLF - deliberately not a conforming Bulk String, matching
// the real Redis full-resync convention.
func (e *Executor) execPsync() [][]byte {
	fullresync := resp.EncodeSimpleString(fmt.Sprintf("FULLRESYNC %s 0", e.ReplID))
	rdbFrame := []byte(fmt.Sprintf("$%d\r\n%s", len(replication.EmptyRDB), replication.EmptyRDB))
	return [][]byte{fullresync, rdbFrame}
}

func (e *Executor) now() int64 {
	if e.NowMillis != nil {
		return e.NowMillis()
	}
	return time.Now().UnixMilli()
}

// IsReplconfListeningPort reports whether args is a
// `REPLCONF listening-port <port>` command, sub-argument matched case
// insensitively - the Connection Task uses this to decide whether to
// register the connection in the replica registry.
func IsReplconfListeningPort(args []string) bool {
	return len(args) >= 2 && strings.EqualFold(args[0], "REPLCONF") && strings.EqualFold(args[1], "listening-port")
}

// IsWriteCommand reports whether args names a command that a primary fans
// out to replicas after executing it. Only the command name is checked,
// not whether the execution succeeded.
func IsWriteCommand(args []string) bool {
	return len(args) > 0 && replication.IsWriteCommand(strings.ToUpper(args[0]))
}
