// Package sphero provides a concurrent client for Sphero robots.
//
// # Overview
//
// A Client owns one transport and runs a background receive loop that:
//   - Decodes frames from the byte stream, resynchronising after garbage
//   - Hands each synchronous response to the command with the same sequence number
//   - Publishes asynchronous notifications to subscribers
//   - Fails every waiting command once the transport is lost
//
// Any number of goroutines may issue commands on the same client. Responses
// may arrive in any order.
//
// # Basic Usage
//
//	// User provides the byte channel (serial port, BLE, net.Conn, ...)
//	port, err := serial.Open(serial.Config{Port: "/dev/rfcomm0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := sphero.New(port)
//	defer client.Close()
//
//	if err := client.SetRGBLED(ctx, 255, 0, 0, false); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration Options
//
//	client := sphero.New(port,
//	    sphero.WithLogger(log),
//	    sphero.WithMetrics(sphero.NewMetrics(prometheus.DefaultRegisterer, "sphero")),
//	    sphero.WithResponseTimeout(time.Second),
//	    sphero.WithNotificationBuffer(64),
//	)
//
// Per-call options override the client defaults:
//
//	err := client.Roll(ctx, 0x80, 90, sphero.NoResponse())
//	err := client.Ping(ctx, sphero.Timeout(100*time.Millisecond))
//
// # Notifications
//
//	for n := range client.Subscribe(ctx) {
//	    fmt.Printf("async 0x%02X: % X\n", n.IDCode, n.Data)
//	}
//
// # Error Handling
//
// The package provides structured error types:
//   - CommandTimedOutError: no response before the deadline
//   - ConnectionLostError: the transport failed, the client is unusable
//   - TransportError: a write failed
//   - DuplicateRegistrationError: more than 256 commands in flight
//   - protocol.ResponseError: the device answered with a non-OK code
//   - protocol.ArgumentOutOfRangeError: invalid command argument, nothing was sent
//
// ErrClientClosed is returned once Close has been called.
package sphero
