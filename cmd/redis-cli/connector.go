package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
)

// Connection is a minimal interactive client socket: dial once, then
// send one whitespace-split command line at a time and print its reply.
type Connection struct {
	addr      string
	conn      net.Conn
	bufReader *bufio.Reader
	connected bool
}

// NewConnection returns a Connection that is not yet dialed.
func NewConnection(host string, port int) *Connection {
	return &Connection{addr: fmt.Sprintf("%s:%d", host, port)}
}

// Connect dials the server.
func (c *Connection) Connect() error {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("redis-cli: could not connect to %s: %w", c.addr, err)
	}
	c.conn = conn
	c.bufReader = bufio.NewReader(conn)
	c.connected = true
	return nil
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.connected = false
	return err
}

// Exec sends input (a whitespace-split command line, re-encoded as a
// RESP array of bulk strings) and returns the decoded reply.
func (c *Connection) Exec(input string) (*TypedVal, error) {
	args := strings.Fields(input)
	if len(args) == 0 {
		return nil, fmt.Errorf("redis-cli: empty command")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&sb, "$%d\r\n%s\r\n", len(a), a)
	}

	if _, err := c.conn.Write([]byte(sb.String())); err != nil {
		return nil, fmt.Errorf("redis-cli: write: %w", err)
	}

	return ReadValue(c.bufReader)
}

// CliPrefix is the prompt prefix shown before the cursor.
func (c *Connection) CliPrefix() string {
	if !c.connected {
		return "not connected"
	}
	return c.addr
}
