package sphero

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerWraps(t *testing.T) {
	s := newSequencer()

	for i := 0; i < 256; i++ {
		assert.Equal(t, byte(i), s.next())
	}
	assert.Equal(t, byte(0), s.next())
	assert.Equal(t, byte(1), s.next())
}

func TestSequencerConcurrentUnique(t *testing.T) {
	s := newSequencer()

	var (
		mu   sync.Mutex
		seen = make(map[byte]int)
		wg   sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 32; i++ {
				seq := s.next()
				mu.Lock()
				seen[seq]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 256)
	for seq, n := range seen {
		assert.Equal(t, 1, n, "sequence %d handed out twice", seq)
	}
}
