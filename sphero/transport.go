package sphero

import "io"

// Transport is the byte channel to the device.
//
// Write must write a whole frame or fail; the client never retries partial
// writes. Read blocks until at least one byte is available, returns (0, nil)
// to signal "no data yet" (for example on a read timeout), and returns an
// error once the connection is gone. Close must be idempotent and must
// unblock a pending Read.
//
// The client serialises Write calls and is the only caller of Read.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}
