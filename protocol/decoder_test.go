package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderResyncBound(t *testing.T) {
	frame := mustResponse(t, RspOK, 9, []byte{0x01, 0x02})

	// Garbage never contains SOP1, so no false frame can start inside it.
	for k := 0; k <= 32; k++ {
		garbage := make([]byte, k)
		for i := range garbage {
			garbage[i] = byte(i*7) % 0xF0
		}

		invalid := 0
		buf := append(append([]byte{}, garbage...), frame...)
		for {
			f, err := DecodeFrame(buf)
			if err == nil {
				assert.Equal(t, byte(9), f.Sequence)
				assert.Equal(t, len(frame), f.Length)
				break
			}
			require.True(t, isMalformed(err), "unexpected outcome %v after %d drops", err, invalid)
			invalid++
			buf = buf[1:]
		}
		assert.LessOrEqual(t, invalid, k)
	}
}

func TestDecoderNext(t *testing.T) {
	first := mustResponse(t, RspOK, 1, nil)
	second := mustAsync(t, 0x07, []byte{0xAB})
	third := mustResponse(t, RspOK, 2, []byte{0x33})

	var dec Decoder
	dec.Feed([]byte{0x00, 0x13})
	dec.Feed(first)
	dec.Feed(second)
	dec.Feed(third[:3])

	f, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, KindResponse, f.Kind)
	assert.Equal(t, byte(1), f.Sequence)
	assert.Equal(t, 2, dec.Discarded())

	f, ok = dec.Next()
	require.True(t, ok)
	assert.Equal(t, KindAsync, f.Kind)
	assert.Equal(t, []byte{0xAB}, f.Data)

	_, ok = dec.Next()
	assert.False(t, ok)
	assert.Equal(t, 3, dec.Buffered())

	dec.Feed(third[3:])
	f, ok = dec.Next()
	require.True(t, ok)
	assert.Equal(t, byte(2), f.Sequence)
	assert.Equal(t, []byte{0x33}, f.Data)
	assert.Equal(t, 0, dec.Buffered())
}

func TestDecoderByteAtATime(t *testing.T) {
	frame := mustResponse(t, RspOK, 200, []byte{0xDE, 0xAD})

	var dec Decoder
	for i, b := range frame {
		dec.Feed([]byte{b})
		f, ok := dec.Next()
		if i < len(frame)-1 {
			require.False(t, ok, "frame completed early at byte %d", i)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, byte(200), f.Sequence)
		assert.Equal(t, len(frame), f.Length)
	}
	assert.Equal(t, 0, dec.Discarded())
}

func TestDecoderCorruptedFrameResyncs(t *testing.T) {
	corrupt := mustResponse(t, RspOK, 5, []byte{0x01})
	corrupt[len(corrupt)-1]++
	good := mustResponse(t, RspOK, 6, nil)

	var dec Decoder
	dec.Feed(corrupt)
	dec.Feed(good)

	f, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, byte(6), f.Sequence)
	assert.Equal(t, len(corrupt), dec.Discarded())

	dec.Feed([]byte{0xFF})
	dec.Reset()
	assert.Equal(t, 0, dec.Buffered())
}
