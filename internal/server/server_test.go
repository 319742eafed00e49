package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"redislite/internal/config"
	"redislite/internal/resp"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Port = listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	srv := New(cfg)
	go func() { _ = srv.Run() }()
	t.Cleanup(srv.Shutdown)

	addr := listener.Addr().String()
	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return addr
}

func sendCommand(t *testing.T, conn net.Conn, args ...string) {
	t.Helper()
	_, err := conn.Write(resp.EncodeCommandArray(args))
	require.NoError(t, err)
}

// TestReplicaReceivesWrites resolves the spec's core replication
// property: once a connection has registered via REPLCONF listening-port
// and completed PSYNC, a SET issued on a different connection is
// propagated to it byte-for-byte, in issue order.
func TestReplicaReceivesWrites(t *testing.T) {
	addr := startServer(t)

	replicaConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer replicaConn.Close()
	replicaReader := bufio.NewReader(replicaConn)

	sendCommand(t, replicaConn, "PING")
	_, err = resp.DecodeResponse(replicaReader)
	require.NoError(t, err)

	sendCommand(t, replicaConn, "REPLCONF", "listening-port", "6380")
	_, err = resp.DecodeResponse(replicaReader)
	require.NoError(t, err)

	sendCommand(t, replicaConn, "REPLCONF", "capa", "psync2")
	_, err = resp.DecodeResponse(replicaReader)
	require.NoError(t, err)

	sendCommand(t, replicaConn, "PSYNC", "?", "-1")
	_, err = resp.DecodeResponse(replicaReader) // FULLRESYNC simple string
	require.NoError(t, err)
	_, err = consumeRawRDBFrame(replicaReader)
	require.NoError(t, err)

	clientConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer clientConn.Close()
	clientReader := bufio.NewReader(clientConn)

	sendCommand(t, clientConn, "SET", "k", "v")
	setReply, err := resp.DecodeResponse(clientReader)
	require.NoError(t, err)
	require.Equal(t, "OK", setReply.Str)

	propagated, err := resp.DecodeCommand(replicaReader)
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "k", "v"}, propagated.Args)
}

// TestNonWriteCommandsAreNotPropagated confirms GET, which never mutates
// the keyspace, produces no fan-out traffic to a registered replica.
func TestNonWriteCommandsAreNotPropagated(t *testing.T) {
	addr := startServer(t)

	replicaConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer replicaConn.Close()
	replicaReader := bufio.NewReader(replicaConn)

	sendCommand(t, replicaConn, "REPLCONF", "listening-port", "6380")
	_, err = resp.DecodeResponse(replicaReader)
	require.NoError(t, err)
	sendCommand(t, replicaConn, "PSYNC", "?", "-1")
	_, err = resp.DecodeResponse(replicaReader)
	require.NoError(t, err)
	_, err = consumeRawRDBFrame(replicaReader)
	require.NoError(t, err)

	clientConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer clientConn.Close()
	clientReader := bufio.NewReader(clientConn)

	sendCommand(t, clientConn, "GET", "nosuchkey")
	_, err = resp.DecodeResponse(clientReader)
	require.NoError(t, err)

	// Issue a SET after the GET: the first frame the replica receives must
	// be this SET, which shows nothing was propagated for the GET.
	sendCommand(t, clientConn, "SET", "trigger", "1")
	_, err = resp.DecodeResponse(clientReader)
	require.NoError(t, err)

	propagated, err := resp.DecodeCommand(replicaReader)
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "trigger", "1"}, propagated.Args)
}

func consumeRawRDBFrame(reader *bufio.Reader) ([]byte, error) {
	sigil, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	_ = sigil
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	length := 0
	for _, c := range line {
		if c >= '0' && c <= '9' {
			length = length*10 + int(c-'0')
		}
	}
	buf := make([]byte, length)
	_, err = readFullTest(reader, buf)
	return buf, err
}

func readFullTest(reader *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := reader.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TestProtocolErrorKeepsConnectionOpen confirms a malformed frame gets
// an Invalid Command reply rather than silently closing the socket - the
// connection must still answer a well-formed command afterward.
func TestProtocolErrorKeepsConnectionOpen(t *testing.T) {
	addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	reader := bufio.NewReader(conn)

	// A single stray byte, not a trailing line: DecodeCommand only
	// consumes the one sigil byte before failing, so no leftover bytes
	// remain queued to be misread as further bad frames.
	_, err = conn.Write([]byte("X"))
	require.NoError(t, err)

	frame, err := resp.DecodeResponse(reader)
	require.NoError(t, err)
	require.Equal(t, resp.TypeSimpleError, frame.Type)
	require.Equal(t, "Invalid Command", frame.Str)

	sendCommand(t, conn, "PING")
	pong, err := resp.DecodeResponse(reader)
	require.NoError(t, err)
	require.Equal(t, "PONG", pong.Str)
}
