package column

import (
	"fmt"
	"math/big"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// nullableColumn is Nullable(T): a byte mask (1 = null) followed by the
// inner column's data for every row, null or not (the inner column is
// fully materialized even where masked, spec.md §4.3).
type nullableColumn struct {
	inner Column
	null  []bool
}

func newNullableColumn(inner Column) *nullableColumn {
	return &nullableColumn{inner: inner}
}

func (c *nullableColumn) Type() string { return fmt.Sprintf("Nullable(%s)", c.inner.Type()) }
func (c *nullableColumn) Rows() int    { return len(c.null) }

func (c *nullableColumn) Values() []any {
	inner := c.inner.Values()
	out := make([]any, len(c.null))
	for i, isNull := range c.null {
		if isNull {
			out[i] = nil
		} else {
			out[i] = inner[i]
		}
	}
	return out
}

func (c *nullableColumn) SetValues(vals []any) error {
	c.null = make([]bool, len(vals))
	inner := make([]any, len(vals))
	zero := zeroValueFor(c.inner)
	for i, v := range vals {
		if v == nil {
			c.null[i] = true
			inner[i] = zero
			continue
		}
		inner[i] = v
	}
	return c.inner.SetValues(inner)
}

func (c *nullableColumn) ReadData(r *proto.Reader, rows int) error {
	c.null = make([]bool, rows)
	for i := range c.null {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		c.null[i] = b != 0
	}
	return c.inner.ReadData(r, rows)
}

func (c *nullableColumn) WriteData(w *proto.Writer) error {
	for _, isNull := range c.null {
		if err := w.WriteBool(isNull); err != nil {
			return err
		}
	}
	return c.inner.WriteData(w)
}

// zeroValueFor returns a placeholder value of the shape inner's
// SetValues expects, used to fill masked-null slots so every row still
// round-trips through the inner column's own encoding.
func zeroValueFor(inner Column) any {
	switch v := inner.(type) {
	case *stringColumn, *fixedStringColumn:
		return ""
	case *enumColumn:
		// An enum only accepts its declared labels; use the one with
		// the smallest value.
		label, found, least := "", false, int16(0)
		for n, name := range v.nameOf {
			if !found || n < least {
				label, found, least = name, true, n
			}
		}
		return label
	case *boolColumn:
		return false
	case *floatColumn:
		if v.bits == 32 {
			return float32(0)
		}
		return float64(0)
	case *intColumn:
		if v.signed {
			return int64(0)
		}
		return uint64(0)
	case *bigIntColumn:
		return big.NewInt(0)
	case *decimalColumn:
		return big.NewInt(0)
	case *dateColumn, *date32Column, *dateTimeColumn, *dateTime64Column:
		return time.Time{}
	case *uuidColumn:
		return uuid.UUID{}
	case *ipv4Column:
		return netip.AddrFrom4([4]byte{})
	case *ipv6Column:
		return netip.Addr{}
	case *arrayColumn:
		return []any{}
	case *tupleColumn:
		return []any{}
	default:
		return any(nil)
	}
}
