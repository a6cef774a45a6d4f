package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

type lz4Codec struct{}

func (lz4Codec) Method() Method { return MethodLZ4 }

func (lz4Codec) Compress(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst, nil
	}
	buf := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("compress: lz4 block compression failed")
	}
	return append(dst, buf[:n]...), nil
}

func (lz4Codec) Decompress(dst, src []byte, uncompressedSize int) ([]byte, error) {
	if uncompressedSize == 0 {
		return dst, nil
	}
	out := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, err
	}
	return append(dst, out[:n]...), nil
}
