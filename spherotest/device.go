// Package spherotest provides a simulated Sphero device for tests and demos.
//
// The device speaks the real wire protocol over an in-memory pipe:
//
//	dev := spherotest.NewDevice()
//	defer dev.Close()
//
//	client := sphero.New(dev.Transport())
//	defer client.Close()
//
//	_ = client.SetRGBLED(ctx, 255, 0, 0, false)
//	fmt.Println(dev.Color()) // {255 0 0}
package spherotest

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/moffa90/go-sphero/protocol"
)

// Reply tells the device how to answer one command.
type Reply struct {
	// Code is the MRSP byte
	Code byte

	// Data is the response payload
	Data []byte

	// Delay postpones the response. Later commands are not blocked.
	Delay time.Duration

	// Drop suppresses the response entirely
	Drop bool
}

// Handler decides the reply for a command.
type Handler func(cmd *protocol.Command) Reply

type handlerKey struct {
	did, cid byte
}

// Device is a simulated robot. Its zero value is not usable; call NewDevice.
type Device struct {
	conn   net.Conn
	client net.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[handlerKey]Handler
	commands []*protocol.Command
	color    protocol.Color
	user     protocol.Color
	speed    byte
	heading  int
	hold     bool
	held     [][]byte
	received chan struct{}

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// NewDevice starts a simulated device. Ping, Set RGB LED, Get RGB LED and
// Roll are answered out of the box; anything else gets RspBadCommand.
func NewDevice() *Device {
	client, conn := net.Pipe()
	d := &Device{
		conn:     conn,
		client:   client,
		handlers: make(map[handlerKey]Handler),
		received: make(chan struct{}, 1024),
		closed:   make(chan struct{}),
	}

	d.handlers[handlerKey{protocol.DeviceCore, protocol.CmdPing}] = d.handlePing
	d.handlers[handlerKey{protocol.DeviceSphero, protocol.CmdSetRGBLED}] = d.handleSetRGBLED
	d.handlers[handlerKey{protocol.DeviceSphero, protocol.CmdGetRGBLED}] = d.handleGetRGBLED
	d.handlers[handlerKey{protocol.DeviceSphero, protocol.CmdRoll}] = d.handleRoll

	d.wg.Add(1)
	go d.serve()

	return d
}

// Transport returns the client end of the pipe.
func (d *Device) Transport() net.Conn {
	return d.client
}

// Handle overrides the reply for one DID/CID pair.
func (d *Device) Handle(did, cid byte, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[handlerKey{did, cid}] = h
}

// Commands returns every command received so far, in arrival order.
func (d *Device) Commands() []*protocol.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*protocol.Command, len(d.commands))
	copy(out, d.commands)
	return out
}

// WaitCommands blocks until at least n commands were received or timeout
// elapses, and reports whether the count was reached.
func (d *Device) WaitCommands(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		d.mu.Lock()
		got := len(d.commands)
		d.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-d.received:
		case <-deadline:
			return false
		}
	}
}

// Color returns the current main LED colour.
func (d *Device) Color() protocol.Color {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.color
}

// Motion returns the last commanded speed and heading.
func (d *Device) Motion() (speed byte, heading int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed, d.heading
}

// Hold queues responses instead of sending them until Release is called.
func (d *Device) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = true
}

// Release sends every held response, last received first when reverse is
// set, and stops holding.
func (d *Device) Release(reverse bool) error {
	d.mu.Lock()
	held := d.held
	d.held = nil
	d.hold = false
	d.mu.Unlock()

	for i := range held {
		frame := held[i]
		if reverse {
			frame = held[len(held)-1-i]
		}
		if err := d.Inject(frame); err != nil {
			return err
		}
	}
	return nil
}

// Inject writes raw bytes to the client, as if the device had sent them.
func (d *Device) Inject(b []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	_, err := d.conn.Write(b)
	return err
}

// Respond sends a synchronous response frame.
func (d *Device) Respond(code, seq byte, data []byte) error {
	frame, err := protocol.EncodeResponse(code, seq, data)
	if err != nil {
		return err
	}
	return d.Inject(frame)
}

// Notify sends an asynchronous notification.
func (d *Device) Notify(id byte, data []byte) error {
	frame, err := protocol.EncodeAsync(id, data)
	if err != nil {
		return err
	}
	return d.Inject(frame)
}

// Close disconnects the device. The client sees its reads fail.
func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		close(d.closed)
		err = d.conn.Close()
		d.wg.Wait()
	})
	return err
}

func (d *Device) serve() {
	defer d.wg.Done()

	var buf []byte
	chunk := make([]byte, 512)
	for {
		n, err := d.conn.Read(chunk)
		buf = append(buf, chunk[:n]...)

		for len(buf) > 0 {
			cmd, used, derr := protocol.DecodeCommand(buf)
			if errors.Is(derr, protocol.ErrIncomplete) {
				break
			}
			if derr != nil {
				buf = buf[1:]
				continue
			}
			buf = buf[used:]
			d.dispatch(cmd)
		}

		if err != nil {
			return
		}
	}
}

func (d *Device) dispatch(cmd *protocol.Command) {
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	h, ok := d.handlers[handlerKey{cmd.DeviceID, cmd.CommandID}]
	d.mu.Unlock()

	select {
	case d.received <- struct{}{}:
	default:
	}

	reply := Reply{Code: protocol.RspBadCommand}
	if ok {
		reply = h(cmd)
	}
	if !cmd.WaitsForResponse() || reply.Drop {
		return
	}

	frame, err := protocol.EncodeResponse(reply.Code, cmd.Sequence, reply.Data)
	if err != nil {
		return
	}

	d.mu.Lock()
	if d.hold {
		d.held = append(d.held, frame)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if reply.Delay <= 0 {
		_ = d.Inject(frame)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-time.After(reply.Delay):
			_ = d.Inject(frame)
		case <-d.closed:
		}
	}()
}

func (d *Device) handlePing(*protocol.Command) Reply {
	return Reply{Code: protocol.RspOK}
}

func (d *Device) handleSetRGBLED(cmd *protocol.Command) Reply {
	if len(cmd.Data) != protocol.SetRGBLEDDataSize {
		return Reply{Code: protocol.RspBadMessage}
	}

	c := protocol.Color{Red: cmd.Data[0], Green: cmd.Data[1], Blue: cmd.Data[2]}
	d.mu.Lock()
	d.color = c
	if cmd.Data[3] != 0 {
		d.user = c
	}
	d.mu.Unlock()

	return Reply{Code: protocol.RspOK}
}

func (d *Device) handleGetRGBLED(*protocol.Command) Reply {
	d.mu.Lock()
	c := d.user
	d.mu.Unlock()
	return Reply{Code: protocol.RspOK, Data: []byte{c.Red, c.Green, c.Blue}}
}

func (d *Device) handleRoll(cmd *protocol.Command) Reply {
	if len(cmd.Data) != protocol.RollDataSize {
		return Reply{Code: protocol.RspBadMessage}
	}
	heading := int(cmd.Data[1])<<8 | int(cmd.Data[2])
	if heading > protocol.MaxHeading {
		return Reply{Code: protocol.RspParameter}
	}

	d.mu.Lock()
	d.speed = cmd.Data[0]
	if protocol.RollState(cmd.Data[3]) == protocol.RollStop {
		d.speed = 0
	}
	d.heading = heading
	d.mu.Unlock()

	return Reply{Code: protocol.RspOK}
}
