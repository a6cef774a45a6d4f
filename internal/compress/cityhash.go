package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/go-faster/city"
)

// U128 is a 128-bit CityHash digest, stored as the two 64-bit halves
// in the little-endian wire order used by the checksum header.
type U128 struct {
	Low, High uint64
}

func (u U128) String() string {
	return fmt.Sprintf("%016x%016x", u.High, u.Low)
}

// PutBytes writes u into dst (which must be at least 16 bytes long) in
// wire order: low half first, then high half, each little-endian.
func (u U128) PutBytes(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], u.Low)
	binary.LittleEndian.PutUint64(dst[8:16], u.High)
}

// U128FromBytes reads a checksum back out of its wire encoding.
func U128FromBytes(b []byte) U128 {
	return U128{
		Low:  binary.LittleEndian.Uint64(b[0:8]),
		High: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// CityHash128 computes the CityHash128 digest of data using
// github.com/go-faster/city, the same library the pack's reference
// native-protocol client links against for this exact purpose.
func CityHash128(data []byte) U128 {
	h := city.CH128(data)
	return U128{Low: h.Low, High: h.High}
}
