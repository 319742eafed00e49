package replication

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"

	"redislite/internal/resp"
)

// handshakeState enumerates the four steps of the replica-side handshake,
// kept as an explicit state machine so the protocol stays easy to read
// and extend rather than unrolled into a single function.
type handshakeState int

const (
	statePing handshakeState = iota
	stateReplconfPort
	stateReplconfCapa
	statePsync
	stateRunning
)

// Handshake dials host:port and drives the four-step replica handshake:
// PING, REPLCONF listening-port, REPLCONF capa psync2, PSYNC ? -1. On
// success it returns the open connection, now positioned to receive the
// primary's propagated write stream, plus the reader already wrapping it.
func Handshake(host string, port int, ownListeningPort int) (net.Conn, *bufio.Reader, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, nil, fmt.Errorf("replication: dial primary: %w", err)
	}

	reader := bufio.NewReader(conn)
	state := statePing

	for state != stateRunning {
		var args []string
		switch state {
		case statePing:
			args = []string{"PING"}
		case stateReplconfPort:
			args = []string{"REPLCONF", "listening-port", strconv.Itoa(ownListeningPort)}
		case stateReplconfCapa:
			args = []string{"REPLCONF", "capa", "psync2"}
		case statePsync:
			args = []string{"PSYNC", "?", "-1"}
		}

		if _, err := conn.Write(resp.EncodeCommandArray(args)); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("replication: handshake write: %w", err)
		}

		if _, err := resp.DecodeResponse(reader); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("replication: handshake read: %w", err)
		}

		if state == statePsync {
			// The RDB payload is a non-conforming bulk header with no
			// trailing CRLF; consume it manually rather than through the
			// typed frame decoder.
			if err := consumeRDBPayload(reader); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("replication: handshake rdb: %w", err)
			}
		}

		state++
	}

	return conn, reader, nil
}

// consumeRDBPayload reads the `$<len>\r\n` header already pending after
// the FULLRESYNC simple string, then discards exactly len bytes with no
// trailing CRLF expected.
func consumeRDBPayload(reader *bufio.Reader) error {
	sigil, err := reader.ReadByte()
	if err != nil {
		return err
	}
	if sigil != '$' {
		return fmt.Errorf("replication: expected '$' before rdb payload, got %q", sigil)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	length, err := strconv.Atoi(trimCRLF(line))
	if err != nil {
		return fmt.Errorf("replication: invalid rdb length: %w", err)
	}
	buf := make([]byte, length)
	_, err = io.ReadFull(reader, buf)
	return err
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
