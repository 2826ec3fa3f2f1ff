// Package protocol implements the Sphero binary command/response framing.
//
// This package provides functions to build command frames and to decode
// response and notification frames from a continuous byte stream.
//
// # Protocol Overview
//
// Every frame starts with two marker bytes and ends with a one-byte checksum:
//
//	Command:  [0xFF][0xFC|FLAGS][DID][CID][SEQ][DLEN][DATA...][CHK]
//	Response: [0xFF][0xFF][MRSP][SEQ][DLEN][DATA...][CHK]
//	Async:    [0xFF][0xFE][ID][DLEN_MSB][DLEN_LSB][DATA...][CHK]
//
// Where:
//   - FLAGS bit 0 asks for a response, bit 1 resets the inactivity timer
//   - SEQ is echoed back in the matching response
//   - DLEN counts the data bytes plus the checksum
//   - CHK = ^(sum of every byte after the two markers) & 0xFF
//
// # Command Builders
//
// Use the New*Command functions and Command.Encode:
//
//	cmd, err := protocol.NewSetRGBLEDCommand(255, 0, 0, false, seq, protocol.DefaultFlags)
//	frame, err := cmd.Encode()
//
// Builders validate their arguments and return an *ArgumentOutOfRangeError
// before any bytes are produced.
//
// # Frame Decoding
//
// DecodeFrame inspects the front of a buffer and reports one of three
// outcomes: a complete frame, ErrIncomplete (wait for more bytes, drop
// nothing) or a *MalformedFrameError (drop one byte and retry). Decoder wraps
// that loop around an append-only buffer:
//
//	var dec protocol.Decoder
//	dec.Feed(chunk)
//	for {
//	    f, ok := dec.Next()
//	    if !ok {
//	        break
//	    }
//	    // handle f
//	}
//
// DecodeCommand parses the other direction, for code that plays the device.
//
// # Error Handling
//
// A response code other than RspOK is turned into a *ResponseError by
// Frame.Err:
//
//	if err := f.Err("set rgb led"); err != nil {
//	    // err.Error() returns: "set rgb led failed: invalid parameter (0x07)"
//	}
package protocol
