// Package server wires the RESP codec, command executor, and
// replication engine together into a running TCP node: accepting client
// connections, and, if started as a replica, performing the handshake
// and then consuming the primary's propagated write stream.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"redislite/internal/command"
	"redislite/internal/config"
	"redislite/internal/keyspace"
	"redislite/internal/replication"
	"redislite/internal/resp"
)

// errInvalidCommand is the reply written back to the client when
// DecodeCommand reports a protocol parse error - an unexpected sigil, a
// missing CRLF, or a short read - rather than a closed connection. It is
// the same Simple Error text the executor uses for unknown commands and
// arity violations.
var errInvalidCommand = resp.EncodeSimpleError("Invalid Command")

// Server is the top-level node: the fields every connection goroutine
// closes over. There is no other package-level mutable state.
type Server struct {
	cfg       *config.Config
	processor *keyspace.Processor
	executor  *command.Executor
	registry  *replication.Registry

	listener net.Listener
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Server in the role described by cfg but does not start
// listening yet.
func New(cfg *config.Config) *Server {
	processor := keyspace.NewProcessor()
	replID := replication.GenerateReplID()
	info := config.NewInfo(cfg, replID)
	executor := command.NewExecutor(processor, info, replID, nil)
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:       cfg,
		processor: processor,
		executor:  executor,
		registry:  replication.NewRegistry(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run starts accepting connections and, if cfg designates this node a
// replica, first performs the handshake and spawns a goroutine to
// consume the primary's write stream. A failed handshake is logged and
// the node keeps running without replication. Run blocks until the
// listener stops accepting (normally via Shutdown).
func (s *Server) Run() error {
	if s.cfg.Role == config.RoleSlave {
		if err := s.startReplicaStream(); err != nil {
			log.Printf("server: replica startup failed, running without replication: %v", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = listener
	log.Printf("server: listening on %s as %s", addr, s.cfg.Role)

	return s.acceptLoop()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				return fmt.Errorf("server: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection is the Connection Task: it reads one command at a
// time, executes it, writes the reply, and - when this node is a
// primary and the command is a write - fans the original command out to
// every registered replica.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	var replicaSinkID int64
	isReplicaSink := false

	for {
		cmd, err := resp.DecodeCommand(reader)
		if err != nil {
			if errors.Is(err, resp.ErrConnectionClosed) {
				return
			}
			// A protocol parse error, not a closed connection: log it,
			// reply, and keep the connection open.
			log.Printf("server: protocol error from %s: %v", conn.RemoteAddr(), err)
			if _, werr := conn.Write(errInvalidCommand); werr != nil {
				return
			}
			continue
		}

		if command.IsReplconfListeningPort(cmd.Args) && !isReplicaSink {
			replicaSinkID = s.registry.Register(conn)
			isReplicaSink = true
		}

		frames := s.executor.Execute(cmd.Args)
		for _, frame := range frames {
			if _, err := conn.Write(frame); err != nil {
				if isReplicaSink {
					s.registry.Remove(replicaSinkID)
				}
				return
			}
		}

		if s.cfg.Role == config.RoleMaster && command.IsWriteCommand(cmd.Args) {
			s.registry.Fanout(resp.EncodeCommandArray(cmd.Args))
		}
	}
}

// startReplicaStream performs the four-step handshake against the
// configured primary and spawns a goroutine that applies every
// subsequently propagated command to the local keyspace. That goroutine
// runs its own decode-and-execute loop over the handshake socket rather
// than handleConnection: it writes no replies and does no fan-out.
func (s *Server) startReplicaStream() error {
	conn, reader, err := replication.Handshake(s.cfg.MasterHost, s.cfg.MasterPort, s.cfg.Port)
	if err != nil {
		return err
	}

	// Closing the socket on shutdown unblocks the stream goroutine's read.
	go func() {
		<-s.ctx.Done()
		conn.Close()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Close()
		for {
			cmd, err := resp.DecodeCommand(reader)
			if err != nil {
				return
			}
			// Apply locally; a replica does not reply to or fan out
			// propagated writes, it only mutates its own keyspace.
			s.executor.Execute(cmd.Args)
		}
	}()
	return nil
}

// Shutdown stops accepting new connections, cancels the replica stream
// if any, and waits up to 5 seconds for in-flight connection goroutines
// to finish before returning.
func (s *Server) Shutdown() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Print("server: shutdown timed out waiting for connections")
	}

	s.processor.Shutdown()
}
