package sphero

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loopholelabs/logging/types"
	"github.com/olebedev/emitter"
	"go.uber.org/atomic"

	"github.com/moffa90/go-sphero/protocol"
)

// Client drives one device over one transport. It correlates responses to
// commands by sequence number, so any number of goroutines may issue
// commands concurrently.
//
// Independent clients never share sequence numbers or pending requests.
type Client struct {
	id        string
	transport Transport
	config    Config
	log       types.Logger

	seq     *sequencer
	table   *correlationTable
	decoder protocol.Decoder
	events  *emitter.Emitter

	writeMu sync.Mutex

	errMu sync.Mutex
	err   error

	closing   *atomic.Bool
	closeOnce sync.Once

	transportOnce sync.Once
	transportErr  error

	closed    chan struct{}
	loopDone  chan struct{}
}

// New creates a Client on an open transport and starts its receive loop.
// The client owns the transport from here on; Close closes it.
//
// Example:
//
//	port, _ := serial.Open(serial.Config{Port: "/dev/rfcomm0"})
//	client := sphero.New(port,
//	    sphero.WithLogger(log),
//	    sphero.WithResponseTimeout(time.Second),
//	)
//	defer client.Close()
func New(transport Transport, opts ...Option) *Client {
	if transport == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		id:        uuid.NewString(),
		transport: transport,
		config:    cfg,
		log:       cfg.Logger,
		seq:       newSequencer(),
		table:     newCorrelationTable(cfg.LateResponseWindow),
		events:    emitter.New(cfg.NotificationBuffer),
		closing:   atomic.NewBool(false),
		closed:    make(chan struct{}),
		loopDone:  make(chan struct{}),
	}

	if c.log != nil {
		c.log.Debug().
			Str("client", c.id).
			Str("api", protocol.APIVersion).
			Int64("timeout_ms", cfg.ResponseTimeout.Milliseconds()).
			Msg("client started")
	}

	go c.receiveLoop()

	return c
}

// ID returns the unique identifier of this client instance.
func (c *Client) ID() string {
	return c.id
}

// Pending returns the number of commands awaiting a response.
func (c *Client) Pending() int {
	return c.table.len()
}

// Err returns the error that stopped the client, or nil while it is running.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// setErr records the first terminal error.
func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Close stops the receive loop, closes the transport and fails every pending
// command with ErrClientClosed. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.setErr(ErrClientClosed)
		close(c.closed)

		err = c.closeTransport()
		<-c.loopDone

		if n := c.table.failAll(ErrClientClosed); n > 0 && c.log != nil {
			c.log.Debug().Str("client", c.id).Int("pending", n).Msg("failed pending commands on close")
		}
		c.config.Metrics.setPending(c.id, 0)

		if c.log != nil {
			c.log.Debug().Str("client", c.id).Msg("client closed")
		}
	})
	return err
}

func (c *Client) closeTransport() error {
	c.transportOnce.Do(func() {
		c.transportErr = c.transport.Close()
	})
	return c.transportErr
}

// fail stops the client after a write error. Every pending command fails
// with a ConnectionLostError and closing the transport ends the receive loop.
func (c *Client) fail(err error) {
	if c.closing.Load() {
		return
	}
	c.setErr(&ConnectionLostError{Err: err})

	n := c.table.failAll(c.Err())
	c.config.Metrics.setPending(c.id, 0)
	if c.log != nil {
		c.log.Error().Str("client", c.id).Int("pending", n).Err(err).Msg("transport failed")
	}

	if cerr := c.closeTransport(); cerr != nil && c.log != nil {
		c.log.Debug().Str("client", c.id).Err(cerr).Msg("close transport")
	}
}

// commandBuilder builds a command. The sequence number is assigned after a
// successful build so invalid arguments never consume one.
type commandBuilder func(flags protocol.Flag) (*protocol.Command, error)

// do runs one command through allocate, encode, register, send and wait.
// It returns a nil frame for fire-and-forget commands.
func (c *Client) do(ctx context.Context, build commandBuilder, opts []CallOption) (*protocol.Frame, error) {
	call := callConfig{
		timeout: c.config.ResponseTimeout,
		flags:   protocol.DefaultFlags,
	}
	for _, opt := range opts {
		opt(&call)
	}

	if err := c.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd, err := build(call.flags)
	if err != nil {
		return nil, err
	}
	seq := c.seq.next()
	cmd.Sequence = seq

	frame, err := cmd.Encode()
	if err != nil {
		return nil, err
	}

	if !cmd.WaitsForResponse() {
		if err := c.write(cmd, frame); err != nil {
			c.fail(err)
			return nil, err
		}
		c.config.Metrics.commandSent(c.id, cmd.Name(), false)
		return nil, nil
	}

	// Register before sending so a fast response cannot beat us.
	req, err := c.table.register(seq, cmd.Name(), call.timeout)
	if err != nil {
		if c.log != nil {
			c.log.Error().Str("client", c.id).Str("command", cmd.Name()).Uint8("seq", seq).Err(err).Msg("register failed")
		}
		return nil, err
	}
	c.config.Metrics.setPending(c.id, c.table.len())

	// The receive loop may have failed everything between Err and register.
	if err := c.Err(); err != nil {
		if c.table.expire(req) {
			return nil, err
		}
		return c.finish(req, <-req.done)
	}

	if err := c.write(cmd, frame); err != nil {
		if !c.table.expire(req) {
			<-req.done
		}
		c.fail(err)
		return nil, err
	}
	c.config.Metrics.commandSent(c.id, cmd.Name(), true)

	return c.wait(ctx, req, call.timeout)
}

// write sends one encoded frame. Writes from concurrent callers never
// interleave on the wire.
func (c *Client) write(cmd *protocol.Command, frame []byte) error {
	c.writeMu.Lock()
	n, err := c.transport.Write(frame)
	c.writeMu.Unlock()

	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if c.log != nil {
			c.log.Error().Str("client", c.id).Str("command", cmd.Name()).Uint8("seq", cmd.Sequence).Err(err).Msg("write failed")
		}
		return &TransportError{Op: "write", Err: err}
	}

	if c.log != nil {
		c.log.Debug().
			Str("client", c.id).
			Str("command", cmd.Name()).
			Uint8("seq", cmd.Sequence).
			Int("length", len(frame)).
			Msg("command sent")
	}
	return nil
}

// wait blocks until req completes, its timeout elapses or ctx is done.
func (c *Client) wait(ctx context.Context, req *pendingRequest, timeout time.Duration) (*protocol.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-req.done:
		return c.finish(req, r)

	case <-timer.C:
		if !c.table.expire(req) {
			// Lost the race against complete or failAll.
			return c.finish(req, <-req.done)
		}
		c.config.Metrics.timedOut(c.id, req.command)
		c.config.Metrics.setPending(c.id, c.table.len())
		if c.log != nil {
			c.log.Warn().Str("client", c.id).Str("command", req.command).Uint8("seq", req.seq).Msg("command timed out")
		}
		return nil, &CommandTimedOutError{Command: req.command, Sequence: req.seq, Timeout: timeout}

	case <-ctx.Done():
		if !c.table.expire(req) {
			return c.finish(req, <-req.done)
		}
		c.config.Metrics.setPending(c.id, c.table.len())
		return nil, ctx.Err()
	}
}

func (c *Client) finish(req *pendingRequest, r result) (*protocol.Frame, error) {
	c.config.Metrics.setPending(c.id, c.table.len())
	if r.err != nil {
		return nil, r.err
	}
	c.config.Metrics.observeRoundTrip(c.id, req.command, time.Since(req.sentAt))
	return r.frame, nil
}
