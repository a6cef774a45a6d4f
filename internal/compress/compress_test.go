package compress

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)

	for _, method := range []Method{MethodNone, MethodLZ4, MethodZSTD} {
		t.Run(method.String(), func(t *testing.T) {
			frame, err := WriteFrame(nil, method, payload)
			if err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			got, err := ReadFrame(bytes.NewReader(frame))
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
			}
		})
	}
}

func TestFrameChecksumMismatch(t *testing.T) {
	frame, err := WriteFrame(nil, MethodLZ4, []byte("corrupt me"))
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	frame[0] ^= 0xFF // flip a checksum byte, leave the body untouched

	_, err = ReadFrame(bytes.NewReader(frame))
	if err == nil {
		t.Fatal("expected checksum error, got nil")
	}
	var checksumErr *ChecksumError
	if !asChecksumError(err, &checksumErr) {
		t.Errorf("expected *ChecksumError, got %T: %v", err, err)
	}
}

func asChecksumError(err error, target **ChecksumError) bool {
	ce, ok := err.(*ChecksumError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func TestAvailableGatesNegotiation(t *testing.T) {
	orig := cityAvailable
	defer func() { cityAvailable = orig }()

	cityAvailable = false
	if Available() {
		t.Fatal("Available() should reflect cityAvailable=false")
	}
	if _, err := WriteFrame(nil, MethodLZ4, []byte("x")); err == nil {
		t.Fatal("expected WriteFrame to refuse compression when the checksum primitive is unavailable")
	}
	// Every frame carries a mandatory checksum, MethodNone included, so
	// framing itself is unusable without the primitive (spec.md §4.2:
	// absence must disable compression negotiation entirely).
	if _, err := WriteFrame(nil, MethodNone, []byte("x")); err == nil {
		t.Fatal("expected WriteFrame(MethodNone) to refuse framing when the checksum primitive is unavailable")
	}
}

func TestFrameChecksumMismatchDetectedForMethodNone(t *testing.T) {
	frame, err := WriteFrame(nil, MethodNone, []byte("corrupt me"))
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	frame[0] ^= 0xFF // flip a checksum byte, leave the uncompressed body untouched

	_, err = ReadFrame(bytes.NewReader(frame))
	if err == nil {
		t.Fatal("expected checksum error for a corrupted MethodNone frame, got nil")
	}
	var checksumErr *ChecksumError
	if !asChecksumError(err, &checksumErr) {
		t.Errorf("expected *ChecksumError, got %T: %v", err, err)
	}
}

func TestStreamReaderWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, MethodZSTD)

	msgs := [][]byte{
		[]byte("first frame"),
		[]byte("second, somewhat longer frame of bytes to compress"),
	}
	for _, m := range msgs {
		if _, err := w.Write(m); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	r := NewReader(&buf)
	for _, want := range msgs {
		got := make([]byte, len(want))
		if _, err := readFull(r, got); err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func readFull(r *Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
