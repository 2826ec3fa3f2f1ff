package protocol

import (
	"fmt"
)

// Command is a single client-to-device message.
// A Command is immutable once built; Encode may be called any number of times.
type Command struct {
	// DeviceID selects the virtual device (DID)
	DeviceID byte

	// CommandID selects the command within the device (CID)
	CommandID byte

	// Sequence is echoed back by the device in the matching response
	Sequence byte

	// Flags is OR'ed into SOP2
	Flags Flag

	// Data is the command payload
	Data []byte
}

// Name returns a short label for logs and metrics.
func (c *Command) Name() string {
	return CommandName(c.DeviceID, c.CommandID)
}

// WaitsForResponse reports whether the device is asked to answer.
func (c *Command) WaitsForResponse() bool {
	return c.Flags.Has(FlagWaitForResponse)
}

// Encode builds the wire frame for the command.
//
// Frame structure:
//
//	[SOP1][SOP2|FLAGS][DID][CID][SEQ][DLEN][DATA...][CHK]
//
// DLEN counts the data bytes plus the checksum. CHK is computed over
// DID through the last data byte.
func (c *Command) Encode() ([]byte, error) {
	if len(c.Data) > MaxCommandDataLength {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(c.Data), MaxCommandDataLength)
	}

	frame := make([]byte, 0, CommandHeaderLength+len(c.Data)+ChecksumLength)
	frame = append(frame, StartOfPacket1)
	frame = append(frame, StartOfPacket2Command|byte(c.Flags&(FlagWaitForResponse|FlagResetInactivityTimeout)))
	frame = append(frame, c.DeviceID, c.CommandID, c.Sequence)
	frame = append(frame, byte(len(c.Data)+ChecksumLength))
	frame = append(frame, c.Data...)

	// Checksum excludes SOP1 and SOP2
	frame = append(frame, Checksum(frame[2:]))

	return frame, nil
}

// NewPingCommand constructs a Ping command.
//
// Data: none.
func NewPingCommand(seq byte, flags Flag) *Command {
	return &Command{
		DeviceID:  DeviceCore,
		CommandID: CmdPing,
		Sequence:  seq,
		Flags:     flags,
	}
}

// NewSetRGBLEDCommand constructs a Set RGB LED command.
// Each channel must be in [0, 255]. If persist is set the colour is also
// stored as the user LED colour, which survives power cycles.
//
// Data format (SetRGBLEDDataSize bytes):
//
//	[RED][GREEN][BLUE][FLAG]
func NewSetRGBLEDCommand(red, green, blue int, persist bool, seq byte, flags Flag) (*Command, error) {
	if err := checkRange("red", red, 0, 0xFF); err != nil {
		return nil, err
	}
	if err := checkRange("green", green, 0, 0xFF); err != nil {
		return nil, err
	}
	if err := checkRange("blue", blue, 0, 0xFF); err != nil {
		return nil, err
	}

	var save byte
	if persist {
		save = 0x01
	}

	return &Command{
		DeviceID:  DeviceSphero,
		CommandID: CmdSetRGBLED,
		Sequence:  seq,
		Flags:     flags,
		Data:      []byte{byte(red), byte(green), byte(blue), save},
	}, nil
}

// NewGetRGBLEDCommand constructs a Get RGB LED command.
// The command is useless without its answer, so FlagWaitForResponse is
// always set regardless of flags.
//
// Data: none.
func NewGetRGBLEDCommand(seq byte, flags Flag) *Command {
	return &Command{
		DeviceID:  DeviceSphero,
		CommandID: CmdGetRGBLED,
		Sequence:  seq,
		Flags:     flags | FlagWaitForResponse,
	}
}

// NewRollCommand constructs a Roll command.
// Speed must be in [0, 255] and heading in [0, 359]. The heading is relative
// to the last calibrated direction: 0 is ahead, 90 right, 180 back, 270 left.
//
// Data format (RollDataSize bytes):
//
//	[SPEED][HEADING_MSB][HEADING_LSB][STATE]
func NewRollCommand(speed, heading int, state RollState, seq byte, flags Flag) (*Command, error) {
	if err := checkRange("speed", speed, 0, 0xFF); err != nil {
		return nil, err
	}
	if err := checkRange("heading", heading, 0, MaxHeading); err != nil {
		return nil, err
	}

	return &Command{
		DeviceID:  DeviceSphero,
		CommandID: CmdRoll,
		Sequence:  seq,
		Flags:     flags,
		Data:      []byte{byte(speed), byte(heading >> 8), byte(heading), byte(state)},
	}, nil
}

// CommandName returns a readable name for a DID/CID pair.
func CommandName(did, cid byte) string {
	switch {
	case did == DeviceCore && cid == CmdPing:
		return "ping"
	case did == DeviceSphero && cid == CmdSetRGBLED:
		return "set_rgb_led"
	case did == DeviceSphero && cid == CmdGetRGBLED:
		return "get_rgb_led"
	case did == DeviceSphero && cid == CmdRoll:
		return "roll"
	default:
		return fmt.Sprintf("cmd_%02x_%02x", did, cid)
	}
}

// DecodeCommand parses one command frame from the front of buf, as a device
// would. It follows the same contract as DecodeFrame: ErrIncomplete for a
// valid prefix, *MalformedFrameError when the caller must drop a byte. The
// second return value is the number of bytes the frame occupied.
func DecodeCommand(buf []byte) (*Command, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}
	if buf[0] != StartOfPacket1 {
		return nil, 0, malformed("invalid SOP1: got 0x%02X, expected 0x%02X", buf[0], StartOfPacket1)
	}
	if len(buf) < 2 {
		return nil, 0, ErrIncomplete
	}
	if buf[1]&StartOfPacket2Command != StartOfPacket2Command {
		return nil, 0, malformed("invalid command SOP2: got 0x%02X", buf[1])
	}
	if len(buf) < CommandHeaderLength {
		return nil, 0, ErrIncomplete
	}

	dlen := int(buf[5])
	if dlen < ChecksumLength {
		return nil, 0, malformed("declared length %d below minimum %d", dlen, ChecksumLength)
	}

	total := CommandHeaderLength + dlen
	if len(buf) < total {
		return nil, 0, ErrIncomplete
	}

	chk := buf[total-1]
	if !verifyChecksum(buf[2:total-1], chk) {
		return nil, 0, malformed("checksum mismatch: got 0x%02X, expected 0x%02X", chk, Checksum(buf[2:total-1]))
	}

	return &Command{
		DeviceID:  buf[2],
		CommandID: buf[3],
		Sequence:  buf[4],
		Flags:     Flag(buf[1] &^ StartOfPacket2Command),
		Data:      copyBytes(buf[CommandHeaderLength : total-1]),
	}, total, nil
}
