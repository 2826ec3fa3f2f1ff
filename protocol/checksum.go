package protocol

// Checksum computes the frame checksum over the bytes following the two
// start-of-packet markers up to, but excluding, the checksum itself.
//
// The checksum is the modulo-256 sum of all bytes, bit-inverted.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum
}

// verifyChecksum reports whether body (everything between SOP2 and CHK)
// matches the trailing checksum byte.
func verifyChecksum(body []byte, chk byte) bool {
	return Checksum(body) == chk
}
