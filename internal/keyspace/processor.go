package keyspace

import "context"

// OpType identifies which operation a Command requests of the Processor.
type OpType int

const (
	OpSet OpType = iota
	OpGet
)

// SetRequest carries the arguments for OpSet.
type SetRequest struct {
	Key             string
	Value           []byte
	HasExpiry       bool
	ExpiresAtMillis int64
}

// GetRequest carries the arguments for OpGet.
type GetRequest struct {
	Key       string
	NowMillis int64
}

// GetResult is the OpGet reply: the stored value, and whether the key
// was present (and unexpired) at the time it was read.
type GetResult struct {
	Value  []byte
	Exists bool
}

// Command is one unit of work submitted to the Processor. Exactly one of
// Set/Get is populated, matching Op. Response receives exactly one value
// before the Processor moves on to the next Command.
type Command struct {
	Op       OpType
	Set      SetRequest
	Get      GetRequest
	Response chan any
}

// Processor serializes every keyspace mutation and read through a single
// goroutine, so that SET and GET never race regardless of how many
// connections are submitting commands concurrently. This mirrors the
// cooperative, single-threaded execution model the command set assumes:
// one command runs to completion before the next one starts.
type Processor struct {
	store   *Store
	commands chan *Command
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewProcessor starts the Processor's goroutine and returns immediately.
// Callers must call Shutdown to stop it.
func NewProcessor() *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		store:    NewStore(),
		commands: make(chan *Command, 64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Submit enqueues cmd and blocks the caller goroutine only until it has
// been accepted for processing, not until it completes - the caller reads
// cmd.Response separately to obtain the result.
func (p *Processor) Submit(cmd *Command) {
	select {
	case p.commands <- cmd:
	case <-p.ctx.Done():
	}
}

// Set is a convenience wrapper over Submit for OpSet.
func (p *Processor) Set(key string, value []byte, hasExpiry bool, expiresAtMillis int64) {
	resp := make(chan any, 1)
	p.Submit(&Command{
		Op:       OpSet,
		Set:      SetRequest{Key: key, Value: value, HasExpiry: hasExpiry, ExpiresAtMillis: expiresAtMillis},
		Response: resp,
	})
	<-resp
}

// Get is a convenience wrapper over Submit for OpGet.
func (p *Processor) Get(key string, nowMillis int64) GetResult {
	resp := make(chan any, 1)
	p.Submit(&Command{
		Op:       OpGet,
		Get:      GetRequest{Key: key, NowMillis: nowMillis},
		Response: resp,
	})
	return (<-resp).(GetResult)
}

// run is the Processor's single goroutine: it is the only code in the
// process that ever touches Store directly.
func (p *Processor) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			return
		case cmd := <-p.commands:
			p.execute(cmd)
		}
	}
}

func (p *Processor) execute(cmd *Command) {
	switch cmd.Op {
	case OpSet:
		p.store.Set(cmd.Set.Key, cmd.Set.Value, cmd.Set.HasExpiry, cmd.Set.ExpiresAtMillis)
		cmd.Response <- struct{}{}
	case OpGet:
		value, exists := p.store.Get(cmd.Get.Key, cmd.Get.NowMillis)
		cmd.Response <- GetResult{Value: value, Exists: exists}
	}
}

// Shutdown stops the Processor's goroutine and waits for it to exit.
func (p *Processor) Shutdown() {
	p.cancel()
	<-p.done
}
