package column

import (
	"fmt"
	"math/big"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// decimalColumn backs Decimal(P,S) and the Decimal32/64/128/256(S)
// aliases. The wire value is a fixed-width signed integer; the decimal
// point sits S digits from the right. Values are materialized as
// *big.Int holding the unscaled integer, paired with the column's
// scale, leaving rendering to the scale up to the caller rather than
// baking a lossy float conversion into the driver.
type decimalColumn struct {
	precision int
	scale     int
	width     int // bytes: 4, 8, 16 or 32
	values    []*big.Int
}

// decimalWidthForPrecision mirrors the server's choice of storage width
// from a Decimal(P,S) precision (spec.md §4.3).
func decimalWidthForPrecision(p int) int {
	switch {
	case p <= 9:
		return 4
	case p <= 18:
		return 8
	case p <= 38:
		return 16
	default:
		return 32
	}
}

func newDecimalColumn(precision, scale int) *decimalColumn {
	return &decimalColumn{precision: precision, scale: scale, width: decimalWidthForPrecision(precision)}
}

func newDecimalColumnWidth(width, scale int) *decimalColumn {
	precision := map[int]int{4: 9, 8: 18, 16: 38, 32: 76}[width]
	return &decimalColumn{precision: precision, scale: scale, width: width}
}

func (c *decimalColumn) Type() string {
	switch c.width {
	case 4:
		return fmt.Sprintf("Decimal32(%d)", c.scale)
	case 8:
		return fmt.Sprintf("Decimal64(%d)", c.scale)
	case 16:
		return fmt.Sprintf("Decimal128(%d)", c.scale)
	default:
		return fmt.Sprintf("Decimal256(%d)", c.scale)
	}
}

func (c *decimalColumn) Rows() int { return len(c.values) }

// Scale returns the number of fractional digits, for callers that want
// to render the unscaled integer as a fixed-point string.
func (c *decimalColumn) Scale() int { return c.scale }

func (c *decimalColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *decimalColumn) SetValues(vals []any) error {
	c.values = make([]*big.Int, len(vals))
	for i, v := range vals {
		n, ok := v.(*big.Int)
		if !ok {
			return fmt.Errorf("%s[%d]: expected *big.Int unscaled value, got %T", c.Type(), i, v)
		}
		c.values[i] = n
	}
	return nil
}

func (c *decimalColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]*big.Int, rows)
	for i := range c.values {
		b, err := r.ReadFixed(c.width)
		if err != nil {
			return err
		}
		c.values[i] = bigIntFromLE(b, true)
	}
	return nil
}

func (c *decimalColumn) WriteData(w *proto.Writer) error {
	for _, v := range c.values {
		if err := w.WriteFixed(bigIntToLE(v, c.width)); err != nil {
			return err
		}
	}
	return nil
}
