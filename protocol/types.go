package protocol

// Flag is a bit in the SOP2 byte of a command.
type Flag byte

const (
	// FlagWaitForResponse asks the device to answer with a synchronous response
	FlagWaitForResponse Flag = 0x01

	// FlagResetInactivityTimeout resets the device's sleep timer
	FlagResetInactivityTimeout Flag = 0x02

	// DefaultFlags is what the facade sends unless told otherwise
	DefaultFlags = FlagWaitForResponse | FlagResetInactivityTimeout
)

// Has reports whether f includes all bits of other.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// Kind distinguishes synchronous responses from asynchronous notifications.
type Kind int

const (
	// KindResponse is a response correlated to a command by sequence number
	KindResponse Kind = iota

	// KindAsync is an unsolicited notification
	KindAsync
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Color is an RGB LED colour.
// Returned by the Get RGB LED command.
type Color struct {
	Red   byte
	Green byte
	Blue  byte
}

// RollState is the last byte of a roll command.
type RollState byte

const (
	// RollStop brings the device to a stop
	RollStop RollState = 0x00

	// RollGo drives the device
	RollGo RollState = 0x01
)
