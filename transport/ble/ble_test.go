package ble

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu          sync.Mutex
	profile     *ble.Profile
	writes      [][]byte
	noRsp       bool
	handler     ble.NotificationHandler
	unsubscribe int
	cancelled   int
	disconnect  chan struct{}
}

func newFakeClient() *fakeClient {
	svc := ble.NewService(RobotControlService)
	svc.AddCharacteristic(ble.NewCharacteristic(CommandsCharacteristic))
	svc.AddCharacteristic(ble.NewCharacteristic(ResponseCharacteristic))

	return &fakeClient{
		profile:    &ble.Profile{Services: []*ble.Service{svc}},
		disconnect: make(chan struct{}),
	}
}

func (f *fakeClient) DiscoverProfile(bool) (*ble.Profile, error) {
	return f.profile, nil
}

func (f *fakeClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !c.UUID.Equal(CommandsCharacteristic) {
		return errors.New("wrong characteristic")
	}
	f.writes = append(f.writes, append([]byte(nil), value...))
	f.noRsp = noRsp
	return nil
}

func (f *fakeClient) Subscribe(c *ble.Characteristic, _ bool, h ble.NotificationHandler) error {
	if !c.UUID.Equal(ResponseCharacteristic) {
		return errors.New("wrong characteristic")
	}
	f.handler = h
	return nil
}

func (f *fakeClient) Unsubscribe(*ble.Characteristic, bool) error {
	f.unsubscribe++
	return nil
}

func (f *fakeClient) CancelConnection() error {
	f.cancelled++
	return nil
}

func (f *fakeClient) Disconnected() <-chan struct{} {
	return f.disconnect
}

func TestNewRequiresService(t *testing.T) {
	f := newFakeClient()
	f.profile = &ble.Profile{}

	_, err := newConn(f, Config{})
	assert.Error(t, err)
}

func TestWriteChunks(t *testing.T) {
	f := newFakeClient()
	c, err := newConn(f, Config{ChunkSize: 4, WriteWithoutResponse: true})
	require.NoError(t, err)
	defer c.Close()

	frame := []byte{0xFF, 0xFF, 0x02, 0x20, 0x07, 0x05, 0xFF, 0x00, 0x00, 0x00, 0xD2}
	n, err := c.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	require.Len(t, f.writes, 3)
	assert.Equal(t, frame[:4], f.writes[0])
	assert.Equal(t, frame[8:], f.writes[2])
	assert.True(t, f.noRsp)
}

func TestReadNotifications(t *testing.T) {
	f := newFakeClient()
	c, err := newConn(f, Config{})
	require.NoError(t, err)
	defer c.Close()

	f.handler([]byte{0xFF, 0xFF, 0x00})
	f.handler([]byte{0x52, 0x01, 0xFE})

	buf := make([]byte, 2)
	var got []byte
	for len(got) < 6 {
		n, err := c.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00, 0x52, 0x01, 0xFE}, got)
}

func TestDisconnectEndsRead(t *testing.T) {
	f := newFakeClient()
	c, err := newConn(f, Config{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Read(make([]byte, 8))
		done <- err
	}()

	close(f.disconnect)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("read did not return after disconnect")
	}

	_, err = c.Write([]byte{1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFakeClient()
	c, err := newConn(f, Config{})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, f.unsubscribe)
	assert.Equal(t, 1, f.cancelled)

	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestCloseAfterDisconnectReleasesClient(t *testing.T) {
	f := newFakeClient()
	c, err := newConn(f, Config{})
	require.NoError(t, err)

	close(f.disconnect)
	_, err = c.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, f.unsubscribe)
	assert.Equal(t, 1, f.cancelled)
}
