package protocol

// The device computes its CRC32 in hardware: polynomial 0x04C11DB7 fed
// MSB-first, initial value 0xFFFFFFFF, final XOR 0xFFFFFFFF. This is NOT
// the reflected zlib/IEEE variant from hash/crc32; the two differ in
// reflect-in/reflect-out and produce different checksums for the same
// input. Protocol v1 frames use the zlib variant, see framev1.go.

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint32 {
	const poly = 0x04C11DB7
	var t [256]uint32
	for i := range t {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = (c << 1) ^ poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}

// Checksum computes the device CRC32 variant over data.
func Checksum(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc ^ 0xFFFFFFFF
}
