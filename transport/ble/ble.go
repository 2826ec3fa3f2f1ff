// Package ble connects a Sphero client to a robot over Bluetooth Low Energy.
//
// Discovery and dialing are left to the caller; this package adapts an
// already-connected go-ble client to a byte stream:
//
//	cln, err := ble.Dial(ctx, ble.NewAddr(addr))
//	conn, err := spheroble.New(cln)
//	client := sphero.New(conn)
package ble

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-ble/ble"
	"github.com/loopholelabs/logging/types"
)

var (
	// RobotControlService is the GATT service carrying the command stream
	RobotControlService = ble.MustParse("22bb746f-2ba0-7554-2d6f-726568705327")

	// CommandsCharacteristic receives command frames
	CommandsCharacteristic = ble.MustParse("22bb746f-2ba1-7554-2d6f-726568705327")

	// ResponseCharacteristic notifies response and async frames
	ResponseCharacteristic = ble.MustParse("22bb746f-2ba6-7554-2d6f-726568705327")
)

// ErrClosed is returned by Read and Write once the connection is closed or
// the peer disconnected.
var ErrClosed = errors.New("ble: connection closed")

// gattClient is the part of ble.Client this package uses.
type gattClient interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// Config holds the BLE adapter settings.
type Config struct {
	// ChunkSize is the largest single characteristic write. Frames longer
	// than this are split. Defaults to 20, the payload of the default ATT MTU.
	ChunkSize int

	// WriteWithoutResponse uses ATT write commands instead of write requests
	WriteWithoutResponse bool

	// QueueLength is how many notifications may wait for Read
	QueueLength int

	// Logger is used for connection events (optional)
	Logger types.Logger
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 20
	}
	if c.QueueLength <= 0 {
		c.QueueLength = 64
	}
}

// Conn is a BLE byte stream. It satisfies sphero.Transport.
type Conn struct {
	client   gattClient
	config   Config
	commands *ble.Characteristic
	response *ble.Characteristic

	incoming chan []byte
	leftover []byte

	writeMu sync.Mutex

	closeOnce sync.Once
	doneOnce  sync.Once
	closed    chan struct{}
}

// New discovers the robot control service on an already-connected client
// and subscribes to its response characteristic.
func New(client ble.Client, cfg Config) (*Conn, error) {
	return newConn(client, cfg)
}

func newConn(client gattClient, cfg Config) (*Conn, error) {
	cfg.applyDefaults()

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("failed to discover profile: %w", err)
	}

	commands := findCharacteristic(profile, CommandsCharacteristic)
	if commands == nil {
		return nil, fmt.Errorf("commands characteristic %s not found", CommandsCharacteristic)
	}
	response := findCharacteristic(profile, ResponseCharacteristic)
	if response == nil {
		return nil, fmt.Errorf("response characteristic %s not found", ResponseCharacteristic)
	}

	c := &Conn{
		client:   client,
		config:   cfg,
		commands: commands,
		response: response,
		incoming: make(chan []byte, cfg.QueueLength),
		closed:   make(chan struct{}),
	}

	if err := client.Subscribe(response, false, c.handleNotification); err != nil {
		return nil, fmt.Errorf("failed to subscribe to responses: %w", err)
	}

	go func() {
		select {
		case <-client.Disconnected():
			if cfg.Logger != nil {
				cfg.Logger.Warn().Msg("ble peer disconnected")
			}
			c.shutdown()
		case <-c.closed:
		}
	}()

	if cfg.Logger != nil {
		cfg.Logger.Info().Int("chunk", cfg.ChunkSize).Msg("ble transport ready")
	}

	return c, nil
}

func findCharacteristic(p *ble.Profile, id ble.UUID) *ble.Characteristic {
	for _, s := range p.Services {
		if !s.UUID.Equal(RobotControlService) {
			continue
		}
		for _, ch := range s.Characteristics {
			if ch.UUID.Equal(id) {
				return ch
			}
		}
	}
	return nil
}

// handleNotification runs on the BLE stack's goroutine.
func (c *Conn) handleNotification(data []byte) {
	b := make([]byte, len(data))
	copy(b, data)

	select {
	case c.incoming <- b:
	case <-c.closed:
	}
}

// Read returns bytes from response notifications, blocking until one
// arrives. It returns io.EOF once the connection is closed.
func (c *Conn) Read(p []byte) (int, error) {
	if len(c.leftover) == 0 {
		select {
		case b := <-c.incoming:
			c.leftover = b
		case <-c.closed:
			// Drain what already arrived before reporting EOF
			select {
			case b := <-c.incoming:
				c.leftover = b
			default:
				return 0, io.EOF
			}
		}
	}

	n := copy(p, c.leftover)
	c.leftover = c.leftover[n:]
	return n, nil
}

// Write sends b to the commands characteristic in ChunkSize pieces.
func (c *Conn) Write(b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(b) {
		select {
		case <-c.closed:
			return written, ErrClosed
		default:
		}

		end := written + c.config.ChunkSize
		if end > len(b) {
			end = len(b)
		}
		if err := c.client.WriteCharacteristic(c.commands, b[written:end], c.config.WriteWithoutResponse); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// Close unsubscribes and drops the connection, also after the peer has
// disconnected. Subsequent calls do nothing.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.shutdown()
		if uerr := c.client.Unsubscribe(c.response, false); uerr != nil && c.config.Logger != nil {
			c.config.Logger.Debug().Err(uerr).Msg("ble unsubscribe failed")
		}
		err = c.client.CancelConnection()
	})
	return err
}

func (c *Conn) shutdown() {
	c.doneOnce.Do(func() {
		close(c.closed)
	})
}
