package protocol

import "errors"

// Decoder accumulates bytes read from a stream and extracts frames from them.
//
// Bytes that cannot start a valid frame are dropped one at a time until a
// frame boundary is found again. A Decoder is owned by a single reader and
// is not safe for concurrent use.
type Decoder struct {
	buf       []byte
	discarded int
}

// Feed appends stream bytes to the buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame in the buffer. It returns false once
// the remaining bytes are an incomplete prefix (or the buffer is empty);
// those bytes are kept for the next Feed.
func (d *Decoder) Next() (*Frame, bool) {
	for len(d.buf) > 0 {
		f, err := DecodeFrame(d.buf)
		switch {
		case err == nil:
			d.consume(f.Length)
			return f, true
		case errors.Is(err, ErrIncomplete):
			return nil, false
		default:
			// Resync: drop exactly one byte and try again
			d.consume(1)
			d.discarded++
		}
	}
	return nil, false
}

// Buffered returns the number of bytes waiting for more input.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Discarded returns the total number of bytes dropped while resynchronising.
func (d *Decoder) Discarded() int {
	return d.discarded
}

// Reset drops all buffered bytes.
func (d *Decoder) Reset() {
	d.buf = nil
}

func (d *Decoder) consume(n int) {
	d.buf = d.buf[n:]
	if len(d.buf) == 0 {
		d.buf = nil
	}
}
