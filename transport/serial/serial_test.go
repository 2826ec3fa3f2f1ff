package serial

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type fakeDevice struct {
	bytes.Buffer
	maxWrite    int
	readTimeout time.Duration
	closed      int
}

func (f *fakeDevice) Write(b []byte) (int, error) {
	if f.maxWrite > 0 && len(b) > f.maxWrite {
		b = b[:f.maxWrite]
	}
	return f.Buffer.Write(b)
}

func (f *fakeDevice) SetReadTimeout(t time.Duration) error {
	f.readTimeout = t
	return nil
}

func (f *fakeDevice) Close() error {
	f.closed++
	return nil
}

func withOpener(t *testing.T, fn func(name string, mode *serial.Mode) (device, error)) {
	t.Helper()
	orig := openDevice
	openDevice = fn
	t.Cleanup(func() { openDevice = orig })
}

func TestOpenRequiresPort(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrNoPort)
}

func TestOpenAppliesDefaults(t *testing.T) {
	fake := &fakeDevice{}
	var gotMode *serial.Mode
	withOpener(t, func(name string, mode *serial.Mode) (device, error) {
		assert.Equal(t, "/dev/rfcomm0", name)
		gotMode = mode
		return fake, nil
	})

	p, err := Open(Config{Port: "/dev/rfcomm0"})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "/dev/rfcomm0", p.Name())
	assert.Equal(t, 115200, gotMode.BaudRate)
	assert.Equal(t, 8, gotMode.DataBits)
	assert.Equal(t, 100*time.Millisecond, fake.readTimeout)
}

func TestOpenRetries(t *testing.T) {
	attempts := 0
	withOpener(t, func(string, *serial.Mode) (device, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("busy")
		}
		return &fakeDevice{}, nil
	})

	cfg := DefaultConfig("/dev/rfcomm0")
	cfg.RetryInterval = time.Millisecond
	p, err := Open(cfg)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 3, attempts)
}

func TestOpenGivesUp(t *testing.T) {
	attempts := 0
	withOpener(t, func(string, *serial.Mode) (device, error) {
		attempts++
		return nil, errors.New("no such device")
	})

	cfg := DefaultConfig("/dev/rfcomm0")
	cfg.Retries = 2
	cfg.RetryInterval = time.Millisecond
	_, err := Open(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such device")
	assert.Equal(t, 3, attempts)
}

func TestOpenContextCancelled(t *testing.T) {
	withOpener(t, func(string, *serial.Mode) (device, error) {
		return nil, errors.New("busy")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig("/dev/rfcomm0")
	cfg.Retries = 100
	cfg.RetryInterval = time.Hour
	_, err := OpenContext(ctx, cfg)
	assert.Error(t, err)
}

func TestPortWriteLoopsOverShortWrites(t *testing.T) {
	fake := &fakeDevice{maxWrite: 2}
	withOpener(t, func(string, *serial.Mode) (device, error) { return fake, nil })

	p, err := Open(DefaultConfig("/dev/rfcomm0"))
	require.NoError(t, err)

	frame := []byte{0xFF, 0xFF, 0x00, 0x01, 0x52, 0x01, 0xAB}
	n, err := p.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, frame, fake.Bytes())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, fake.closed)

	_, err = p.Write(frame)
	assert.ErrorIs(t, err, ErrPortClosed)
	_, err = p.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrPortClosed)
}
