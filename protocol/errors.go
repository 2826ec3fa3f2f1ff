package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by DecodeFrame when the buffer holds a prefix
// that may still become a valid frame once more bytes arrive.
var ErrIncomplete = errors.New("incomplete frame")

// ResponseError represents a non-OK message response code from the device.
type ResponseError struct {
	// Operation is the command that failed
	Operation string

	// Code is the MRSP byte of the response
	Code byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, ResponseCodeName(e.Code), e.Code)
}

// IsResponseError returns true if the error is a ResponseError.
func IsResponseError(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}

// ArgumentOutOfRangeError is returned by command builders when an argument
// falls outside its valid range. No bytes are produced.
type ArgumentOutOfRangeError struct {
	Argument string
	Value    int
	Min      int
	Max      int
}

func (e *ArgumentOutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d is out of range: valid range is %d-%d",
		e.Argument, e.Value, e.Min, e.Max)
}

// IsArgumentOutOfRange returns true if the error is an ArgumentOutOfRangeError.
func IsArgumentOutOfRange(err error) bool {
	var ae *ArgumentOutOfRangeError
	return errors.As(err, &ae)
}

// MalformedFrameError is returned by DecodeFrame when the buffer prefix can
// never be a valid frame. The caller drops one byte and retries.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return "malformed frame: " + e.Reason
}

func malformed(format string, args ...interface{}) error {
	return &MalformedFrameError{Reason: fmt.Sprintf(format, args...)}
}

// checkRange validates that v lies in [min, max].
func checkRange(name string, v, min, max int) error {
	if v < min || v > max {
		return &ArgumentOutOfRangeError{Argument: name, Value: v, Min: min, Max: max}
	}
	return nil
}

// ResponseCodeName returns a human-readable name for an MRSP code.
func ResponseCodeName(code byte) string {
	switch code {
	case RspOK:
		return "ok"
	case RspGeneralError:
		return "general error"
	case RspChecksum:
		return "checksum failure"
	case RspFragment:
		return "command fragment"
	case RspBadCommand:
		return "unknown command"
	case RspUnsupported:
		return "command unsupported"
	case RspBadMessage:
		return "bad message format"
	case RspParameter:
		return "invalid parameter"
	case RspExecution:
		return "execution failed"
	case RspBadDevice:
		return "unknown device"
	case RspMemoryBusy:
		return "memory busy"
	case RspBadPassword:
		return "bad password"
	case RspPowerLow:
		return "voltage too low"
	case RspPageIllegal:
		return "illegal page"
	case RspFlashFail:
		return "flash write failed"
	case RspMainAppCorrupt:
		return "main application corrupt"
	case RspTimeout:
		return "device timed out"
	default:
		return fmt.Sprintf("unknown response code 0x%02X", code)
	}
}
