package column

import (
	"fmt"
	"math/big"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// intColumn handles the eight fixed-width integer kinds (Int8..Int64,
// UInt8..UInt64). Values are always materialized as int64 for signed
// kinds and uint64 for unsigned ones, regardless of width, so callers
// never have to type-switch on width.
type intColumn struct {
	typeName string
	width    int
	signed   bool
	signedV  []int64
	unsV     []uint64
}

func newIntColumn(typeName string, width int, signed bool) *intColumn {
	return &intColumn{typeName: typeName, width: width, signed: signed}
}

func (c *intColumn) Type() string { return c.typeName }

func (c *intColumn) Rows() int {
	if c.signed {
		return len(c.signedV)
	}
	return len(c.unsV)
}

func (c *intColumn) Values() []any {
	n := c.Rows()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		if c.signed {
			out[i] = c.signedV[i]
		} else {
			out[i] = c.unsV[i]
		}
	}
	return out
}

func (c *intColumn) SetValues(vals []any) error {
	if c.signed {
		c.signedV = make([]int64, len(vals))
		for i, v := range vals {
			n, err := toInt64(v)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", c.typeName, i, err)
			}
			c.signedV[i] = n
		}
		c.unsV = nil
	} else {
		c.unsV = make([]uint64, len(vals))
		for i, v := range vals {
			n, err := toUint64(v)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", c.typeName, i, err)
			}
			c.unsV[i] = n
		}
		c.signedV = nil
	}
	return nil
}

func (c *intColumn) ReadData(r *proto.Reader, rows int) error {
	if c.signed {
		c.signedV = make([]int64, rows)
	} else {
		c.unsV = make([]uint64, rows)
	}
	for i := 0; i < rows; i++ {
		b, err := r.ReadFixed(c.width)
		if err != nil {
			return err
		}
		u := leToUint64(b)
		if c.signed {
			c.signedV[i] = signExtend(u, c.width)
		} else {
			c.unsV[i] = u
		}
	}
	return nil
}

func (c *intColumn) WriteData(w *proto.Writer) error {
	n := c.Rows()
	for i := 0; i < n; i++ {
		var u uint64
		if c.signed {
			u = uint64(c.signedV[i])
		} else {
			u = c.unsV[i]
		}
		if err := writeLEWidth(w, u, c.width); err != nil {
			return err
		}
	}
	return nil
}

func leToUint64(b []byte) uint64 {
	var u uint64
	for i := len(b) - 1; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	return u
}

func signExtend(u uint64, width int) int64 {
	bits := uint(width * 8)
	if bits == 64 {
		return int64(u)
	}
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

func writeLEWidth(w *proto.Writer, u uint64, width int) error {
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(u)
		u >>= 8
	}
	return w.WriteFixed(b)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected signed integer, got %T", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %T", v)
	}
}

// bigIntColumn handles Int128/256 and UInt128/256, stored little-endian
// on the wire. Values are materialized as *big.Int.
type bigIntColumn struct {
	typeName string
	width    int
	signed   bool
	values   []*big.Int
}

func newBigIntColumn(typeName string, width int, signed bool) *bigIntColumn {
	return &bigIntColumn{typeName: typeName, width: width, signed: signed}
}

func (c *bigIntColumn) Type() string { return c.typeName }
func (c *bigIntColumn) Rows() int    { return len(c.values) }

func (c *bigIntColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *bigIntColumn) SetValues(vals []any) error {
	c.values = make([]*big.Int, len(vals))
	for i, v := range vals {
		n, ok := v.(*big.Int)
		if !ok {
			return fmt.Errorf("%s[%d]: expected *big.Int, got %T", c.typeName, i, v)
		}
		c.values[i] = n
	}
	return nil
}

func (c *bigIntColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]*big.Int, rows)
	for i := 0; i < rows; i++ {
		b, err := r.ReadFixed(c.width)
		if err != nil {
			return err
		}
		c.values[i] = bigIntFromLE(b, c.signed)
	}
	return nil
}

func (c *bigIntColumn) WriteData(w *proto.Writer) error {
	for _, v := range c.values {
		b := bigIntToLE(v, c.width)
		if err := w.WriteFixed(b); err != nil {
			return err
		}
	}
	return nil
}

func bigIntFromLE(b []byte, signed bool) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	n := new(big.Int).SetBytes(be)
	if signed && len(be) > 0 && be[0]&0x80 != 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(len(be)*8))
		n.Sub(n, full)
	}
	return n
}

func bigIntToLE(v *big.Int, width int) []byte {
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		u.Add(u, full)
	}
	be := u.Bytes()
	out := make([]byte, width)
	for i, b := range be {
		pos := len(be) - 1 - i
		if pos < width {
			out[pos] = b
		}
	}
	return out
}

type floatColumn struct {
	bits int
	f32  []float32
	f64  []float64
}

func newFloatColumn(bits int) *floatColumn { return &floatColumn{bits: bits} }

func (c *floatColumn) Type() string {
	if c.bits == 32 {
		return "Float32"
	}
	return "Float64"
}

func (c *floatColumn) Rows() int {
	if c.bits == 32 {
		return len(c.f32)
	}
	return len(c.f64)
}

func (c *floatColumn) Values() []any {
	n := c.Rows()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		if c.bits == 32 {
			out[i] = c.f32[i]
		} else {
			out[i] = c.f64[i]
		}
	}
	return out
}

func (c *floatColumn) SetValues(vals []any) error {
	if c.bits == 32 {
		c.f32 = make([]float32, len(vals))
		for i, v := range vals {
			f, ok := v.(float32)
			if !ok {
				return fmt.Errorf("Float32[%d]: expected float32, got %T", i, v)
			}
			c.f32[i] = f
		}
	} else {
		c.f64 = make([]float64, len(vals))
		for i, v := range vals {
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("Float64[%d]: expected float64, got %T", i, v)
			}
			c.f64[i] = f
		}
	}
	return nil
}

func (c *floatColumn) ReadData(r *proto.Reader, rows int) error {
	if c.bits == 32 {
		c.f32 = make([]float32, rows)
		for i := range c.f32 {
			v, err := r.ReadFloat32()
			if err != nil {
				return err
			}
			c.f32[i] = v
		}
		return nil
	}
	c.f64 = make([]float64, rows)
	for i := range c.f64 {
		v, err := r.ReadFloat64()
		if err != nil {
			return err
		}
		c.f64[i] = v
	}
	return nil
}

func (c *floatColumn) WriteData(w *proto.Writer) error {
	if c.bits == 32 {
		for _, v := range c.f32 {
			if err := w.WriteFloat32(v); err != nil {
				return err
			}
		}
		return nil
	}
	for _, v := range c.f64 {
		if err := w.WriteFloat64(v); err != nil {
			return err
		}
	}
	return nil
}

type boolColumn struct {
	values []bool
}

func newBoolColumn() *boolColumn { return &boolColumn{} }

func (c *boolColumn) Type() string { return "Bool" }
func (c *boolColumn) Rows() int    { return len(c.values) }

func (c *boolColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *boolColumn) SetValues(vals []any) error {
	c.values = make([]bool, len(vals))
	for i, v := range vals {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("Bool[%d]: expected bool, got %T", i, v)
		}
		c.values[i] = b
	}
	return nil
}

func (c *boolColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]bool, rows)
	for i := range c.values {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		c.values[i] = b != 0
	}
	return nil
}

func (c *boolColumn) WriteData(w *proto.Writer) error {
	for _, v := range c.values {
		if err := w.WriteBool(v); err != nil {
			return err
		}
	}
	return nil
}
