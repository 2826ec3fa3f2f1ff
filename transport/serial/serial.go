// Package serial connects a Sphero client to a serial device: a Bluetooth
// classic RFCOMM tty (/dev/rfcomm0, /dev/tty.Sphero-*) or a USB adapter.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/loopholelabs/logging/types"
	"go.bug.st/serial"
	"go.uber.org/atomic"
)

var (
	// ErrNoPort is returned when Config.Port is empty
	ErrNoPort = errors.New("serial: no port configured")

	// ErrPortClosed is returned by Read and Write after Close
	ErrPortClosed = errors.New("serial: port closed")
)

// Config holds the serial connection settings.
type Config struct {
	// Port is the device path, for example /dev/rfcomm0
	Port string

	// BaudRate defaults to 115200
	BaudRate int

	// ReadTimeout bounds a single Read. A read that times out returns (0, nil).
	ReadTimeout time.Duration

	// Retries is the number of additional open attempts after the first fails
	Retries int

	// RetryInterval is the initial wait between open attempts; it grows
	// exponentially
	RetryInterval time.Duration

	// Logger is used for connection events (optional)
	Logger types.Logger
}

// DefaultConfig returns the default configuration for port.
func DefaultConfig(port string) Config {
	return Config{
		Port:          port,
		BaudRate:      115200,
		ReadTimeout:   100 * time.Millisecond,
		Retries:       3,
		RetryInterval: 500 * time.Millisecond,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig(c.Port)
	if c.BaudRate <= 0 {
		c.BaudRate = def.BaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = def.RetryInterval
	}
}

// device is the part of serial.Port this package uses.
type device interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// openDevice is replaced in tests.
var openDevice = func(name string, mode *serial.Mode) (device, error) {
	return serial.Open(name, mode)
}

// Port is an open serial connection. It satisfies sphero.Transport.
type Port struct {
	name   string
	dev    device
	log    types.Logger
	closed *atomic.Bool
	once   sync.Once
}

// Open opens the port described by cfg, retrying with exponential backoff.
//
// Example:
//
//	port, err := serial.Open(serial.DefaultConfig("/dev/rfcomm0"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := sphero.New(port)
func Open(cfg Config) (*Port, error) {
	return OpenContext(context.Background(), cfg)
}

// OpenContext is Open with a context that cancels the retry loop.
func OpenContext(ctx context.Context, cfg Config) (*Port, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	cfg.applyDefaults()

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.RetryInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(cfg.Retries)), ctx)

	var dev device
	attempt := 0
	op := func() error {
		attempt++
		d, err := openDevice(cfg.Port, mode)
		if err != nil {
			return err
		}
		if err := d.SetReadTimeout(cfg.ReadTimeout); err != nil {
			d.Close()
			return backoff.Permanent(fmt.Errorf("failed to set read timeout: %w", err))
		}
		dev = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		if cfg.Logger != nil {
			cfg.Logger.Warn().
				Str("port", cfg.Port).
				Int("attempt", attempt).
				Int64("retry_in_ms", wait.Milliseconds()).
				Err(err).
				Msg("open failed")
		}
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to open %s after %d attempts: %w", cfg.Port, attempt, err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info().Str("port", cfg.Port).Int("baud", cfg.BaudRate).Msg("serial port opened")
	}

	return &Port{
		name:   cfg.Port,
		dev:    dev,
		log:    cfg.Logger,
		closed: atomic.NewBool(false),
	}, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// Read reads available bytes. It returns (0, nil) when the read timeout
// elapses with no data.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.dev.Read(b)
	if p.closed.Load() {
		return n, ErrPortClosed
	}
	return n, err
}

// Write writes all of b, looping over short writes.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}

	written := 0
	for written < len(b) {
		n, err := p.dev.Write(b[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

// Close closes the port. Subsequent calls do nothing.
func (p *Port) Close() error {
	var err error
	p.once.Do(func() {
		p.closed.Store(true)
		err = p.dev.Close()
		if p.log != nil {
			p.log.Info().Str("port", p.name).Msg("serial port closed")
		}
	})
	return err
}

// List returns the serial ports present on the system.
func List() ([]string, error) {
	return serial.GetPortsList()
}
