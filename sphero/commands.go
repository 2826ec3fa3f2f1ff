package sphero

import (
	"context"

	"github.com/moffa90/go-sphero/protocol"
)

// Ping checks that the device is alive.
//
// Example:
//
//	if err := client.Ping(ctx); err != nil {
//	    log.Fatal(err)
//	}
func (c *Client) Ping(ctx context.Context, opts ...CallOption) error {
	f, err := c.do(ctx, func(flags protocol.Flag) (*protocol.Command, error) {
		return protocol.NewPingCommand(0, flags), nil
	}, opts)
	return responseErr(f, err, "ping")
}

// SetRGBLED sets the main LED colour. Each channel must be in [0, 255];
// out-of-range values fail with *protocol.ArgumentOutOfRangeError before
// anything is sent. With persist the colour becomes the user default.
func (c *Client) SetRGBLED(ctx context.Context, red, green, blue int, persist bool, opts ...CallOption) error {
	f, err := c.do(ctx, func(flags protocol.Flag) (*protocol.Command, error) {
		return protocol.NewSetRGBLEDCommand(red, green, blue, persist, 0, flags)
	}, opts)
	return responseErr(f, err, "set_rgb_led")
}

// GetRGBLED reads the user LED colour. It always waits for the response,
// even when NoResponse is given.
func (c *Client) GetRGBLED(ctx context.Context, opts ...CallOption) (protocol.Color, error) {
	f, err := c.do(ctx, func(flags protocol.Flag) (*protocol.Command, error) {
		return protocol.NewGetRGBLEDCommand(0, flags), nil
	}, opts)
	if err := responseErr(f, err, "get_rgb_led"); err != nil {
		return protocol.Color{}, err
	}
	return protocol.ParseGetRGBLEDResponse(f.Data)
}

// Roll drives the device at speed [0, 255] towards heading [0, 359].
//
// Example:
//
//	// Half speed, turn right
//	err := client.Roll(ctx, 0x80, 90)
func (c *Client) Roll(ctx context.Context, speed, heading int, opts ...CallOption) error {
	f, err := c.do(ctx, func(flags protocol.Flag) (*protocol.Command, error) {
		return protocol.NewRollCommand(speed, heading, protocol.RollGo, 0, flags)
	}, opts)
	return responseErr(f, err, "roll")
}

// Stop brings the device to rest facing heading.
func (c *Client) Stop(ctx context.Context, heading int, opts ...CallOption) error {
	f, err := c.do(ctx, func(flags protocol.Flag) (*protocol.Command, error) {
		return protocol.NewRollCommand(0, heading, protocol.RollStop, 0, flags)
	}, opts)
	return responseErr(f, err, "stop")
}

// Send issues an arbitrary command and returns the raw response frame.
// A non-OK response code is not treated as an error here; inspect
// Frame.ResponseCode or call Frame.Err. The frame is nil when the command
// was sent with NoResponse.
func (c *Client) Send(ctx context.Context, deviceID, commandID byte, data []byte, opts ...CallOption) (*protocol.Frame, error) {
	return c.do(ctx, func(flags protocol.Flag) (*protocol.Command, error) {
		return &protocol.Command{
			DeviceID:  deviceID,
			CommandID: commandID,
			Flags:     flags,
			Data:      append([]byte(nil), data...),
		}, nil
	}, opts)
}

func responseErr(f *protocol.Frame, err error, op string) error {
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	return f.Err(op)
}
