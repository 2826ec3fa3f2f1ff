package protocol

import (
	"fmt"
)

// Frame is one structurally valid unit extracted from the incoming stream.
type Frame struct {
	// Kind tells responses and notifications apart
	Kind Kind

	// Sequence echoes the command's sequence number (KindResponse only)
	Sequence byte

	// ResponseCode is the MRSP byte (KindResponse only)
	ResponseCode byte

	// IDCode identifies the notification type (KindAsync only)
	IDCode byte

	// Data is the payload, copied out of the receive buffer
	Data []byte

	// Length is the total number of bytes the frame occupied on the wire
	Length int
}

// Err returns a ResponseError when the device reported a failure for op.
func (f *Frame) Err(op string) error {
	if f.Kind != KindResponse || f.ResponseCode == RspOK {
		return nil
	}
	return &ResponseError{Operation: op, Code: f.ResponseCode}
}

func (f *Frame) String() string {
	if f.Kind == KindAsync {
		return fmt.Sprintf("async(id=0x%02X len=%d)", f.IDCode, len(f.Data))
	}
	return fmt.Sprintf("response(seq=%d mrsp=0x%02X len=%d)", f.Sequence, f.ResponseCode, len(f.Data))
}

// DecodeFrame tries to extract one frame from the front of buf.
//
// Response frame structures:
//
//	sync:  [SOP1][0xFF][MRSP][SEQ][DLEN][DATA...][CHK]
//	async: [SOP1][0xFE][ID][DLEN_MSB][DLEN_LSB][DATA...][CHK]
//
// It returns ErrIncomplete when buf is a valid prefix that needs more bytes,
// a *MalformedFrameError when the prefix can never be valid (the caller must
// drop exactly one byte and retry), or the frame. The caller consumes
// Frame.Length bytes. buf is never modified or retained.
func DecodeFrame(buf []byte) (*Frame, error) {
	if len(buf) == 0 {
		return nil, ErrIncomplete
	}
	if buf[0] != StartOfPacket1 {
		return nil, malformed("invalid SOP1: got 0x%02X, expected 0x%02X", buf[0], StartOfPacket1)
	}
	if len(buf) < 2 {
		return nil, ErrIncomplete
	}

	switch buf[1] {
	case StartOfPacket2Response:
		return decodeResponse(buf)
	case StartOfPacket2Async:
		return decodeAsync(buf)
	default:
		return nil, malformed("invalid SOP2: got 0x%02X", buf[1])
	}
}

func decodeResponse(buf []byte) (*Frame, error) {
	if len(buf) < ResponseHeaderLength {
		return nil, ErrIncomplete
	}

	dlen := int(buf[4])
	if dlen < ChecksumLength {
		return nil, malformed("declared length %d below minimum %d", dlen, ChecksumLength)
	}

	total := ResponseHeaderLength + dlen
	if len(buf) < total {
		return nil, ErrIncomplete
	}

	chk := buf[total-1]
	if !verifyChecksum(buf[2:total-1], chk) {
		return nil, malformed("checksum mismatch: got 0x%02X, expected 0x%02X", chk, Checksum(buf[2:total-1]))
	}

	return &Frame{
		Kind:         KindResponse,
		ResponseCode: buf[2],
		Sequence:     buf[3],
		Data:         copyBytes(buf[ResponseHeaderLength : total-1]),
		Length:       total,
	}, nil
}

func decodeAsync(buf []byte) (*Frame, error) {
	if len(buf) < AsyncHeaderLength {
		return nil, ErrIncomplete
	}

	dlen := int(buf[3])<<8 | int(buf[4])
	if dlen < ChecksumLength {
		return nil, malformed("declared length %d below minimum %d", dlen, ChecksumLength)
	}
	if dlen-ChecksumLength > MaxAsyncDataLength {
		return nil, malformed("declared length %d exceeds maximum %d", dlen, MaxAsyncDataLength+ChecksumLength)
	}

	total := AsyncHeaderLength + dlen
	if len(buf) < total {
		return nil, ErrIncomplete
	}

	chk := buf[total-1]
	if !verifyChecksum(buf[2:total-1], chk) {
		return nil, malformed("checksum mismatch: got 0x%02X, expected 0x%02X", chk, Checksum(buf[2:total-1]))
	}

	return &Frame{
		Kind:   KindAsync,
		IDCode: buf[2],
		Data:   copyBytes(buf[AsyncHeaderLength : total-1]),
		Length: total,
	}, nil
}

// EncodeResponse builds a synchronous response frame as the device would
// send it. Used by simulated devices and tests.
func EncodeResponse(code, seq byte, data []byte) ([]byte, error) {
	if len(data) > MaxResponseDataLength {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(data), MaxResponseDataLength)
	}

	frame := make([]byte, 0, ResponseHeaderLength+len(data)+ChecksumLength)
	frame = append(frame, StartOfPacket1, StartOfPacket2Response, code, seq, byte(len(data)+ChecksumLength))
	frame = append(frame, data...)
	frame = append(frame, Checksum(frame[2:]))

	return frame, nil
}

// EncodeAsync builds an asynchronous notification frame as the device would
// send it.
func EncodeAsync(id byte, data []byte) ([]byte, error) {
	if len(data) > MaxAsyncDataLength {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(data), MaxAsyncDataLength)
	}

	dlen := len(data) + ChecksumLength
	frame := make([]byte, 0, AsyncHeaderLength+dlen)
	frame = append(frame, StartOfPacket1, StartOfPacket2Async, id, byte(dlen>>8), byte(dlen))
	frame = append(frame, data...)
	frame = append(frame, Checksum(frame[2:]))

	return frame, nil
}

// ParseGetRGBLEDResponse parses the Get RGB LED response data.
//
// Data format (GetRGBLEDResponseSize bytes):
//
//	[RED][GREEN][BLUE]
func ParseGetRGBLEDResponse(data []byte) (Color, error) {
	if len(data) != GetRGBLEDResponseSize {
		return Color{}, fmt.Errorf("invalid data length for Get RGB LED response: got %d bytes, expected %d", len(data), GetRGBLEDResponseSize)
	}
	return Color{Red: data[0], Green: data[1], Blue: data[2]}, nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
