package hash

import (
	"hash"
	"hash/crc32"
)

// crc32cTable is pre-computed for the CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
// Uses hardware acceleration when available (SSE4.2, ARM CRC).
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Label returns the stable hash of a label.
//
// The value depends only on the label bytes, never on process state, so a
// label maps to the same bucket across runs and machines.
func Label(label string) uint32 {
	return crc32.Update(0, crc32cTable, []byte(label))
}

// Bucket maps a label onto [0, n). n must be positive.
func Bucket(label string, n int) int {
	return int(Label(label) % uint32(n))
}
