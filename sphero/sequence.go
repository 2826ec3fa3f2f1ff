package sphero

import (
	"go.uber.org/atomic"
)

// sequencer hands out one-byte sequence numbers, wrapping 255 -> 0.
type sequencer struct {
	n *atomic.Uint32
}

func newSequencer() *sequencer {
	return &sequencer{n: atomic.NewUint32(0)}
}

// next returns the current value and advances the counter.
func (s *sequencer) next() byte {
	return byte(s.n.Inc() - 1)
}
