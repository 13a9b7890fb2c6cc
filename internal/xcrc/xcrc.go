// Package xcrc provides the IEEE CRC32 checksum and little-endian byte
// helpers shared by the frame codec and storage backend.
package xcrc

import (
	"encoding/binary"
	"hash/crc32"
)

// table is the standard IEEE polynomial (0xEDB88320) table, same one
// crc32.ChecksumIEEE uses internally.
var table = crc32.IEEETable

// Checksum computes the IEEE CRC32 of data, chained from seed. A seed of 0
// reproduces crc32.ChecksumIEEE(data); a non-zero seed is used to fold an
// encryption key's own CRC into every frame checksum, so a frame written
// under one key never validates under another (see internal/crypto).
func Checksum(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, table, data)
}

// PutUint32LE writes v to buf[0:4] in little-endian order.
func PutUint32LE(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// Uint32LE reads a little-endian uint32 from buf[0:4].
func Uint32LE(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
