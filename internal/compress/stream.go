package compress

import "io"

// Reader decompresses a stream of framed blocks (spec.md §4.2) from an
// underlying io.Reader, presenting a plain io.Reader interface so it
// can be swapped in as proto.Reader's compressed source without that
// package knowing anything about framing.
type Reader struct {
	src     io.Reader
	pending []byte
	pos     int
}

// NewReader wraps src, decompressing each length-framed block on
// demand as the caller's Read calls drain the previous one.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= len(r.pending) {
		buf, err := ReadFrame(r.src)
		if err != nil {
			return 0, err
		}
		r.pending = buf
		r.pos = 0
	}
	n := copy(p, r.pending[r.pos:])
	r.pos += n
	return n, nil
}

// Writer compresses each Write call into one framed block
// (spec.md §4.2) on the underlying io.Writer. Since proto.Writer
// flushes exactly once per protocol boundary (end of packet, end of
// block), each Write call here corresponds to exactly one frame, the
// same block granularity the server uses.
type Writer struct {
	dst    io.Writer
	method Method
}

// NewWriter wraps dst, compressing with method.
func NewWriter(dst io.Writer, method Method) *Writer {
	return &Writer{dst: dst, method: method}
}

func (w *Writer) Write(p []byte) (int, error) {
	framed, err := WriteFrame(nil, w.method, p)
	if err != nil {
		return 0, err
	}
	if _, err := w.dst.Write(framed); err != nil {
		return 0, err
	}
	return len(p), nil
}
