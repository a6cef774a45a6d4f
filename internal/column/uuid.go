package column

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// uuidColumn is UUID: 16 bytes on the wire, encoded as two UInt64
// halves in the server's native byte order. Unlike RFC 4122's
// big-endian text form, each 8-byte half is written byte-reversed, so
// the bytes of the wire form and of uuid.UUID's canonical
// representation differ by reversing each half independently (not the
// whole 16 bytes).
type uuidColumn struct {
	values []uuid.UUID
}

func newUUIDColumn() *uuidColumn { return &uuidColumn{} }

func (c *uuidColumn) Type() string { return "UUID" }
func (c *uuidColumn) Rows() int    { return len(c.values) }

func (c *uuidColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *uuidColumn) SetValues(vals []any) error {
	c.values = make([]uuid.UUID, len(vals))
	for i, v := range vals {
		u, ok := v.(uuid.UUID)
		if !ok {
			return fmt.Errorf("UUID[%d]: expected uuid.UUID, got %T", i, v)
		}
		c.values[i] = u
	}
	return nil
}

func (c *uuidColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]uuid.UUID, rows)
	for i := range c.values {
		b, err := r.ReadFixed(16)
		if err != nil {
			return err
		}
		c.values[i] = uuidFromWire(b)
	}
	return nil
}

func (c *uuidColumn) WriteData(w *proto.Writer) error {
	for _, u := range c.values {
		if err := w.WriteFixed(uuidToWire(u)); err != nil {
			return err
		}
	}
	return nil
}

func reverse8(b []byte) [8]byte {
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = b[7-i]
	}
	return out
}

func uuidFromWire(b []byte) uuid.UUID {
	var out uuid.UUID
	hi := reverse8(b[0:8])
	lo := reverse8(b[8:16])
	copy(out[0:8], hi[:])
	copy(out[8:16], lo[:])
	return out
}

func uuidToWire(u uuid.UUID) []byte {
	hi := reverse8(u[0:8])
	lo := reverse8(u[8:16])
	out := make([]byte, 16)
	copy(out[0:8], hi[:])
	copy(out[8:16], lo[:])
	return out
}
