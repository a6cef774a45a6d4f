package compress

import "github.com/klauspost/compress/zstd"

type zstdCodec struct{}

func (zstdCodec) Method() Method { return MethodZSTD }

// encoders/decoders are process-wide per klauspost/compress/zstd's own
// recommendation (they are safe for concurrent use and expensive to
// construct); the connection only ever has one frame in flight at a
// time, so sharing them introduces no ordering hazard.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

func (zstdCodec) Compress(dst, src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, dst), nil
}

func (zstdCodec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(src, dst)
	if err != nil {
		return nil, err
	}
	return out, nil
}
