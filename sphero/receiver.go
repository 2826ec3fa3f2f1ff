package sphero

import (
	"github.com/moffa90/go-sphero/protocol"
)

// receiveLoop is the only reader of the transport. It feeds the decoder,
// routes async frames to subscribers and hands responses to their waiters.
// It exits when the transport returns an error.
func (c *Client) receiveLoop() {
	defer close(c.loopDone)

	buf := make([]byte, c.config.ReadChunkSize)
	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			c.decoder.Feed(buf[:n])
			c.drain()
		}
		if err != nil {
			c.shutdown(err)
			return
		}
	}
}

// drain dispatches every complete frame in the decoder.
func (c *Client) drain() {
	before := c.decoder.Discarded()
	for {
		f, ok := c.decoder.Next()
		if !ok {
			break
		}
		c.dispatch(f)
	}

	if dropped := c.decoder.Discarded() - before; dropped > 0 {
		c.config.Metrics.resynced(c.id, dropped)
		if c.log != nil {
			c.log.Debug().Str("client", c.id).Int("bytes", dropped).Msg("resynchronised receive stream")
		}
	}
}

func (c *Client) dispatch(f *protocol.Frame) {
	if f.Kind == protocol.KindAsync {
		c.notify(f)
		return
	}

	req, outcome := c.table.complete(f)
	c.config.Metrics.responseReceived(c.id, outcome)

	switch outcome {
	case completed:
		if c.log != nil {
			c.log.Debug().
				Str("client", c.id).
				Str("command", req.command).
				Uint8("seq", f.Sequence).
				Str("code", protocol.ResponseCodeName(f.ResponseCode)).
				Msg("response received")
		}
	case droppedLate:
		if c.log != nil {
			c.log.Warn().Str("client", c.id).Uint8("seq", f.Sequence).Msg("dropped late response")
		}
	default:
		if c.log != nil {
			c.log.Warn().Str("client", c.id).Uint8("seq", f.Sequence).Msg("dropped unexpected response")
		}
	}
}

// shutdown records why the loop stopped, drops any partial frame and fails
// every pending command.
func (c *Client) shutdown(err error) {
	var cause error = ErrClientClosed
	if !c.closing.Load() {
		cause = &ConnectionLostError{Err: err}
		if c.log != nil {
			c.log.Error().Str("client", c.id).Err(err).Msg("receive loop stopped")
		}
	}
	c.setErr(cause)

	if n := c.decoder.Buffered(); n > 0 {
		if c.log != nil {
			c.log.Debug().Str("client", c.id).Int("bytes", n).Msg("dropped partial frame")
		}
		c.decoder.Reset()
	}

	if n := c.table.failAll(c.Err()); n > 0 {
		c.config.Metrics.setPending(c.id, 0)
	}
}
