package column

import (
	"fmt"
	"strings"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// tupleColumn is Tuple(T1, ..., Tn): each element column encoded in
// full, one after another, for the whole block (not interleaved per
// row); every element column independently holds Rows() values.
type tupleColumn struct {
	elems []Column
	rows  int
}

func newTupleColumn(elems []Column) *tupleColumn {
	return &tupleColumn{elems: elems}
}

// newPointColumn builds the Geo Point type: Tuple(Float64, Float64).
func newPointColumn() *tupleColumn {
	return newTupleColumn([]Column{newFloatColumn(64), newFloatColumn(64)})
}

func (c *tupleColumn) Type() string {
	names := make([]string, len(c.elems))
	for i, e := range c.elems {
		names[i] = e.Type()
	}
	return fmt.Sprintf("Tuple(%s)", strings.Join(names, ", "))
}

func (c *tupleColumn) Rows() int { return c.rows }

func (c *tupleColumn) Values() []any {
	cols := make([][]any, len(c.elems))
	for i, e := range c.elems {
		cols[i] = e.Values()
	}
	out := make([]any, c.rows)
	for i := 0; i < c.rows; i++ {
		row := make([]any, len(c.elems))
		for j := range c.elems {
			row[j] = cols[j][i]
		}
		out[i] = row
	}
	return out
}

func (c *tupleColumn) SetValues(vals []any) error {
	cols := make([][]any, len(c.elems))
	for i := range cols {
		cols[i] = make([]any, len(vals))
	}
	for i, v := range vals {
		row, ok := v.([]any)
		if !ok || len(row) != len(c.elems) {
			return fmt.Errorf("Tuple[%d]: expected %d-element []any, got %T", i, len(c.elems), v)
		}
		for j, e := range row {
			cols[j][i] = e
		}
	}
	for i, e := range c.elems {
		if err := e.SetValues(cols[i]); err != nil {
			return fmt.Errorf("Tuple element %d: %w", i, err)
		}
	}
	c.rows = len(vals)
	return nil
}

func (c *tupleColumn) ReadData(r *proto.Reader, rows int) error {
	for i, e := range c.elems {
		if err := e.ReadData(r, rows); err != nil {
			return fmt.Errorf("Tuple element %d: %w", i, err)
		}
	}
	c.rows = rows
	return nil
}

func (c *tupleColumn) WriteData(w *proto.Writer) error {
	for i, e := range c.elems {
		if err := e.WriteData(w); err != nil {
			return fmt.Errorf("Tuple element %d: %w", i, err)
		}
	}
	return nil
}
