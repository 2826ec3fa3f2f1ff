package spherotest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-sphero/protocol"
)

func send(t *testing.T, d *Device, cmd *protocol.Command) {
	t.Helper()
	frame, err := cmd.Encode()
	require.NoError(t, err)
	_, err = d.Transport().Write(frame)
	require.NoError(t, err)
}

func readFrame(t *testing.T, d *Device) *protocol.Frame {
	t.Helper()
	require.NoError(t, d.Transport().SetReadDeadline(time.Now().Add(time.Second)))

	var dec protocol.Decoder
	buf := make([]byte, 64)
	for {
		n, err := d.Transport().Read(buf)
		require.NoError(t, err)
		dec.Feed(buf[:n])
		if f, ok := dec.Next(); ok {
			return f
		}
	}
}

func TestDeviceAnswersPing(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	send(t, d, protocol.NewPingCommand(42, protocol.DefaultFlags))

	f := readFrame(t, d)
	assert.Equal(t, protocol.KindResponse, f.Kind)
	assert.Equal(t, byte(42), f.Sequence)
	assert.Equal(t, byte(protocol.RspOK), f.ResponseCode)
}

func TestDeviceSkipsGarbage(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	_, err := d.Transport().Write([]byte{0x01, 0xFF, 0x00})
	require.NoError(t, err)
	send(t, d, protocol.NewPingCommand(1, protocol.DefaultFlags))

	assert.Equal(t, byte(1), readFrame(t, d).Sequence)
	require.Len(t, d.Commands(), 1)
}

func TestDeviceUnknownCommand(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	send(t, d, &protocol.Command{DeviceID: 0x10, CommandID: 0x10, Sequence: 3, Flags: protocol.DefaultFlags})
	assert.Equal(t, byte(protocol.RspBadCommand), readFrame(t, d).ResponseCode)
}

func TestDeviceDelayedReply(t *testing.T) {
	d := NewDevice()
	defer d.Close()
	d.Handle(protocol.DeviceCore, protocol.CmdPing, func(*protocol.Command) Reply {
		return Reply{Code: protocol.RspOK, Delay: 50 * time.Millisecond}
	})

	start := time.Now()
	send(t, d, protocol.NewPingCommand(0, protocol.DefaultFlags))
	readFrame(t, d)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDeviceNotify(t *testing.T) {
	d := NewDevice()
	defer d.Close()

	go func() { _ = d.Notify(0x0B, []byte{1, 2}) }()

	f := readFrame(t, d)
	assert.Equal(t, protocol.KindAsync, f.Kind)
	assert.Equal(t, byte(0x0B), f.IDCode)
	assert.Equal(t, []byte{1, 2}, f.Data)
}
