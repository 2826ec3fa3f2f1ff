package sphero

import (
	"time"

	"github.com/loopholelabs/logging/types"

	"github.com/moffa90/go-sphero/protocol"
)

// Config holds the client configuration.
type Config struct {
	// Logger is used for logging protocol activity (optional)
	Logger types.Logger

	// Metrics receives protocol counters (optional)
	Metrics *Metrics

	// ResponseTimeout is how long a command waits for its response
	// unless overridden per call
	ResponseTimeout time.Duration

	// ReadChunkSize is the maximum number of bytes requested per transport read
	ReadChunkSize int

	// LateResponseWindow is how long an expired sequence number is remembered
	// so a response arriving after its timeout is logged as late rather than
	// unexpected
	LateResponseWindow time.Duration

	// NotificationBuffer is the per-subscriber queue length for async
	// notifications. Notifications for a full subscriber are dropped.
	NotificationBuffer uint
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ResponseTimeout:    500 * time.Millisecond,
		ReadChunkSize:      1024,
		LateResponseWindow: 5 * time.Second,
		NotificationBuffer: 16,
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Config)

// WithLogger sets a logger for client operations.
//
// Example:
//
//	log := logging.New(logging.Zerolog, "sphero", os.Stderr)
//	client := sphero.New(transport, sphero.WithLogger(log))
func WithLogger(logger types.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics attaches a Metrics collector.
//
// Example:
//
//	m := sphero.NewMetrics(prometheus.DefaultRegisterer, "sphero")
//	client := sphero.New(transport, sphero.WithMetrics(m))
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithResponseTimeout sets the default time a command waits for its response.
//
// Example:
//
//	client := sphero.New(transport, sphero.WithResponseTimeout(time.Second))
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ResponseTimeout = timeout
		}
	}
}

// WithReadChunkSize sets the maximum size of a single transport read.
func WithReadChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ReadChunkSize = size
		}
	}
}

// WithLateResponseWindow sets how long timed-out sequence numbers are remembered.
func WithLateResponseWindow(window time.Duration) Option {
	return func(c *Config) {
		if window > 0 {
			c.LateResponseWindow = window
		}
	}
}

// WithNotificationBuffer sets the per-subscriber notification queue length.
func WithNotificationBuffer(size uint) Option {
	return func(c *Config) {
		if size > 0 {
			c.NotificationBuffer = size
		}
	}
}

// callConfig holds per-command settings.
type callConfig struct {
	timeout time.Duration
	flags   protocol.Flag
}

// CallOption adjusts a single command invocation.
type CallOption func(*callConfig)

// Timeout overrides the client's response timeout for one call.
//
// Example:
//
//	err := client.Ping(ctx, sphero.Timeout(100*time.Millisecond))
func Timeout(timeout time.Duration) CallOption {
	return func(c *callConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NoResponse sends the command fire-and-forget. The device is not asked to
// answer and the call returns as soon as the bytes are written.
func NoResponse() CallOption {
	return func(c *callConfig) {
		c.flags &^= protocol.FlagWaitForResponse
	}
}

// NoInactivityReset leaves the device's inactivity timer untouched.
func NoInactivityReset() CallOption {
	return func(c *callConfig) {
		c.flags &^= protocol.FlagResetInactivityTimeout
	}
}
