package column

import (
	"fmt"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// arrayColumn is Array(T): a UInt64 cumulative end-offset per row
// followed by the inner column's flattened data for every element
// across all rows (spec.md §4.3).
type arrayColumn struct {
	inner   Column
	offsets []uint64
}

func newArrayColumn(inner Column) *arrayColumn {
	return &arrayColumn{inner: inner}
}

func (c *arrayColumn) Type() string { return fmt.Sprintf("Array(%s)", c.inner.Type()) }
func (c *arrayColumn) Rows() int    { return len(c.offsets) }

func (c *arrayColumn) Values() []any {
	innerVals := c.inner.Values()
	out := make([]any, len(c.offsets))
	var start uint64
	for i, end := range c.offsets {
		out[i] = innerVals[start:end]
		start = end
	}
	return out
}

func (c *arrayColumn) SetValues(vals []any) error {
	c.offsets = make([]uint64, len(vals))
	var flat []any
	var total uint64
	for i, v := range vals {
		elems, ok := v.([]any)
		if !ok {
			return fmt.Errorf("Array[%d]: expected []any, got %T", i, v)
		}
		total += uint64(len(elems))
		c.offsets[i] = total
		flat = append(flat, elems...)
	}
	return c.inner.SetValues(flat)
}

func (c *arrayColumn) ReadData(r *proto.Reader, rows int) error {
	c.offsets = make([]uint64, rows)
	for i := range c.offsets {
		v, err := r.ReadUInt64()
		if err != nil {
			return err
		}
		c.offsets[i] = v
	}
	total := 0
	if rows > 0 {
		total = int(c.offsets[rows-1])
	}
	return c.inner.ReadData(r, total)
}

func (c *arrayColumn) WriteData(w *proto.Writer) error {
	for _, off := range c.offsets {
		if err := w.WriteUInt64(off); err != nil {
			return err
		}
	}
	return c.inner.WriteData(w)
}
