// internal/crc/crc16.go
package crc

import "github.com/sigurn/crc16"

// Parameters: init 0xFFFF, poly 0x1021, no reflection, no final xor.
// This is the variant the satellite firmware implements on both links.
var table = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum returns the 16-bit checksum of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// Append appends the checksum of data to data, high byte first.
func Append(data []byte) []byte {
	sum := Checksum(data)
	return append(data, byte(sum>>8), byte(sum))
}

// Verify reports whether sum is the checksum of data.
func Verify(data []byte, sum uint16) bool {
	return Checksum(data) == sum
}
