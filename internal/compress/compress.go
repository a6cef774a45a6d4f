// Package compress implements the optional per-block compression
// framing described in spec.md §4.2: a content-addressed checksum
// header wrapping an LZ4- or ZSTD-compressed (or uncompressed) body.
package compress

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Method identifies the compression codec used for one frame.
type Method byte

const (
	MethodNone Method = 0x02
	MethodLZ4  Method = 0x82
	MethodZSTD Method = 0x90
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodLZ4:
		return "lz4"
	case MethodZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(m))
	}
}

// headerSize is checksum(16) + method(1) + compressed_size(4) + uncompressed_size(4).
const headerSize = 16 + 1 + 4 + 4

// ChecksumError is returned when a frame's CityHash128 checksum does
// not match its header. Per spec.md §4.2 this is always fatal to the
// connection.
type ChecksumError struct {
	Want, Got U128
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("compress: checksum mismatch: header says %s, computed %s", e.Want, e.Got)
}

// Codec compresses and decompresses frame bodies for one method.
type Codec interface {
	Method() Method
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte, uncompressedSize int) ([]byte, error)
}

// Registry of available codecs, keyed by method byte. ZSTD and LZ4 are
// always available (they are pure-Go/cgo-free third-party packages);
// see doc comment on Available for the one codec (cityhash-backed
// checksum) that the spec allows to be absent.
var registry = map[Method]Codec{
	MethodLZ4:  lz4Codec{},
	MethodZSTD: zstdCodec{},
}

func codecFor(m Method) (Codec, error) {
	if m == MethodNone {
		return noneCodec{}, nil
	}
	c, ok := registry[m]
	if !ok {
		return nil, fmt.Errorf("compress: unsupported method %s", m)
	}
	return c, nil
}

// Available reports whether compression negotiation is possible at
// all. The spec requires that the absence of the checksum primitive
// (CityHash) disable negotiation outright rather than silently
// downgrade to an unchecksummed frame. In this Go build CityHash is
// provided by github.com/go-faster/city, a statically linked pure-Go
// dependency, so it is always available; Available exists so callers
// (and tests) can exercise the "disabled" code path the same way a
// build lacking the dependency would.
func Available() bool { return cityAvailable }

// cityAvailable is a variable, not a constant, so tests can flip it to
// simulate an environment where the checksum primitive is missing.
var cityAvailable = true

// WriteFrame compresses src with method (or copies it through for
// MethodNone) and appends the checksummed frame to dst.
func WriteFrame(dst []byte, method Method, src []byte) ([]byte, error) {
	if !Available() {
		return nil, fmt.Errorf("compress: checksum primitive unavailable, cannot negotiate compression")
	}
	codec, err := codecFor(method)
	if err != nil {
		return nil, err
	}
	body, err := codec.Compress(nil, src)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, headerSize+len(body))
	frame[16] = byte(method)
	binary.LittleEndian.PutUint32(frame[17:21], uint32(headerSize+len(body)))
	binary.LittleEndian.PutUint32(frame[21:25], uint32(len(src)))
	copy(frame[headerSize:], body)

	sum := CityHash128(frame[16:headerSize+len(body)])
	sum.PutBytes(frame[0:16])

	return append(dst, frame...), nil
}

// ReadFrame reads one checksummed frame from r and returns its
// decompressed body.
func ReadFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	method := Method(hdr[16])
	compressedSize := binary.LittleEndian.Uint32(hdr[17:21])
	uncompressedSize := binary.LittleEndian.Uint32(hdr[21:25])

	if compressedSize < headerSize {
		return nil, fmt.Errorf("compress: implausible compressed_size %d", compressedSize)
	}
	body := make([]byte, compressedSize-headerSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	// Checksum verification is mandatory for every frame, including
	// MethodNone ones: the wire format always carries one.
	if !Available() {
		return nil, fmt.Errorf("compress: checksum primitive unavailable, cannot verify frame")
	}
	full := make([]byte, 9+len(body))
	copy(full, hdr[16:headerSize])
	copy(full[9:], body)
	got := CityHash128(full)
	want := U128FromBytes(hdr[0:16])
	if got != want {
		return nil, &ChecksumError{Want: want, Got: got}
	}

	codec, err := codecFor(method)
	if err != nil {
		return nil, err
	}
	return codec.Decompress(nil, body, int(uncompressedSize))
}

type noneCodec struct{}

func (noneCodec) Method() Method { return MethodNone }
func (noneCodec) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}
func (noneCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	return append(dst, src...), nil
}
