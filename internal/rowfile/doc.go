// Package rowfile implements the binary container for labeled vector rows.
//
// It backs the "vsb" matrix format and retrofit checkpoint shards.
//
// # Layout
//
//	header  : magic "VSRW" | version u16 | flags u16 | compression u8 | reserved [3]u8 | dim u32
//	blocks  : compress.Block frames, each holding up to BlockRows rows
//	trailer : rows u64 | blocks u32 | crc32c u32 | magic "VSRE"
//
// Inside a block each row is: [ordinal u64 when FlagOrdinals] label-length
// uvarint, label bytes, dim little-endian float32 values. The trailer CRC32C
// covers every byte before it.
package rowfile
