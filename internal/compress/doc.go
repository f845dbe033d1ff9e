// Package compress frames byte blocks with optional LZ4 or ZSTD compression.
//
// Each block carries its own header, so a reader can walk a sequence of
// blocks without an external index. Incompressible blocks are stored raw.
package compress
