package sphero

import (
	"errors"
	"fmt"
	"time"
)

// ErrClientClosed is returned for commands issued or still pending when the
// client is closed.
var ErrClientClosed = errors.New("sphero: client closed")

// CommandTimedOutError indicates that no correlated response arrived before
// the deadline. The sequence number is free again once this is returned.
type CommandTimedOutError struct {
	Command  string
	Sequence byte
	Timeout  time.Duration
}

func (e *CommandTimedOutError) Error() string {
	return fmt.Sprintf("%s (seq %d) timed out after %s", e.Command, e.Sequence, e.Timeout)
}

// IsTimeout returns true if the error is a CommandTimedOutError.
func IsTimeout(err error) bool {
	var te *CommandTimedOutError
	return errors.As(err, &te)
}

// DuplicateRegistrationError indicates that a sequence number was allocated
// while an earlier command with the same number is still awaiting its
// response. This happens when more than 256 commands are pending at once.
type DuplicateRegistrationError struct {
	Sequence byte
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("sequence number %d is already awaiting a response", e.Sequence)
}

// ConnectionLostError indicates that a transport read or write failed. Every
// pending and subsequent command fails with it.
type ConnectionLostError struct {
	Err error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("connection lost: %v", e.Err)
}

func (e *ConnectionLostError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failed transport write.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
