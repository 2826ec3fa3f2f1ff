package protocol

// APIVersion is the Sphero API revision whose framing this package implements.
const APIVersion = "1.50"

// Frame marker constants.
const (
	// StartOfPacket1 is the first marker byte of every frame (0xFF)
	StartOfPacket1 = 0xFF

	// StartOfPacket2Command is the base value of SOP2 for client commands.
	// The low two bits carry the command flags.
	StartOfPacket2Command = 0xFC

	// StartOfPacket2Response marks a synchronous response frame (0xFF)
	StartOfPacket2Response = 0xFF

	// StartOfPacket2Async marks an asynchronous notification frame (0xFE)
	StartOfPacket2Async = 0xFE

	// MinFrameLength is the shortest legal response frame:
	// SOP1(1) + SOP2(1) + MRSP(1) + SEQ(1) + DLEN(1) + CHK(1)
	MinFrameLength = 6

	// CommandHeaderLength is SOP1 + SOP2 + DID + CID + SEQ + DLEN
	CommandHeaderLength = 6

	// ResponseHeaderLength is SOP1 + SOP2 + MRSP + SEQ + DLEN
	ResponseHeaderLength = 5

	// AsyncHeaderLength is SOP1 + SOP2 + ID + DLEN_MSB + DLEN_LSB
	AsyncHeaderLength = 5

	// ChecksumLength is the size of the trailing checksum
	ChecksumLength = 1
)

// Payload limits.
const (
	// MaxCommandDataLength is the largest data field a command can carry.
	// DLEN is one byte and counts the checksum.
	MaxCommandDataLength = 0xFF - ChecksumLength

	// MaxResponseDataLength is the largest data field of a synchronous response.
	MaxResponseDataLength = 0xFF - ChecksumLength

	// MaxAsyncDataLength caps the declared length of an asynchronous frame.
	// A corrupted 16-bit length beyond this is rejected rather than waited for.
	MaxAsyncDataLength = 2048
)

// Device IDs.
const (
	// DeviceCore addresses the core command set
	DeviceCore = 0x00

	// DeviceSphero addresses the Sphero-specific command set
	DeviceSphero = 0x02
)

// Command IDs.
const (
	// CmdPing verifies the data link and that the device is dispatching commands
	CmdPing = 0x01

	// CmdSetRGBLED sets the main LED colour
	CmdSetRGBLED = 0x20

	// CmdGetRGBLED reads back the user LED colour
	CmdGetRGBLED = 0x22

	// CmdRoll drives the device along a heading at a speed
	CmdRoll = 0x30
)

// Message response codes (MRSP) returned in synchronous responses.
const (
	// RspOK indicates the command succeeded
	RspOK = 0x00

	// RspGeneralError is a non-specific error
	RspGeneralError = 0x01

	// RspChecksum indicates the device received a bad checksum
	RspChecksum = 0x02

	// RspFragment indicates the device received a command fragment
	RspFragment = 0x03

	// RspBadCommand indicates an unknown command ID
	RspBadCommand = 0x04

	// RspUnsupported indicates the command is currently unsupported
	RspUnsupported = 0x05

	// RspBadMessage indicates a bad message format
	RspBadMessage = 0x06

	// RspParameter indicates a parameter value is invalid
	RspParameter = 0x07

	// RspExecution indicates the command failed to execute
	RspExecution = 0x08

	// RspBadDevice indicates an unknown device ID
	RspBadDevice = 0x09

	// RspMemoryBusy indicates RAM is in use by another operation
	RspMemoryBusy = 0x0A

	// RspBadPassword indicates a bad password
	RspBadPassword = 0x0B

	// RspPowerLow indicates the voltage is too low for reflash
	RspPowerLow = 0x31

	// RspPageIllegal indicates an illegal page number
	RspPageIllegal = 0x32

	// RspFlashFail indicates a flash page write failure
	RspFlashFail = 0x33

	// RspMainAppCorrupt indicates the main application is corrupt
	RspMainAppCorrupt = 0x34

	// RspTimeout indicates the device timed out waiting for a message
	RspTimeout = 0x35
)

// Command data sizes.
const (
	// SetRGBLEDDataSize is [R][G][B][FLAG]
	SetRGBLEDDataSize = 4

	// GetRGBLEDResponseSize is [R][G][B]
	GetRGBLEDResponseSize = 3

	// RollDataSize is [SPEED][HEADING_MSB][HEADING_LSB][STATE]
	RollDataSize = 4

	// MaxHeading is the largest heading in degrees
	MaxHeading = 359
)
