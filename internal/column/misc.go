package column

import (
	"fmt"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// jsonColumn backs JSON/Object('json'): transported as an opaque
// string of serialized JSON text, left unparsed by the driver (parsing
// is a concern for the caller, not the wire codec).
type jsonColumn struct {
	inner *stringColumn
}

func newJSONColumn() *jsonColumn { return &jsonColumn{inner: newStringColumn()} }

func (c *jsonColumn) Type() string                           { return "JSON" }
func (c *jsonColumn) Rows() int                               { return c.inner.Rows() }
func (c *jsonColumn) Values() []any                           { return c.inner.Values() }
func (c *jsonColumn) SetValues(vals []any) error              { return c.inner.SetValues(vals) }
func (c *jsonColumn) ReadData(r *proto.Reader, rows int) error { return c.inner.ReadData(r, rows) }
func (c *jsonColumn) WriteData(w *proto.Writer) error         { return c.inner.WriteData(w) }

// nothingColumn backs Nothing: a placeholder type with no values,
// serialized as one zero byte per row.
type nothingColumn struct {
	rows int
}

func newNothingColumn() *nothingColumn { return &nothingColumn{} }

func (c *nothingColumn) Type() string { return "Nothing" }
func (c *nothingColumn) Rows() int    { return c.rows }

func (c *nothingColumn) Values() []any {
	out := make([]any, c.rows)
	for i := range out {
		out[i] = nil
	}
	return out
}

func (c *nothingColumn) SetValues(vals []any) error {
	c.rows = len(vals)
	return nil
}

func (c *nothingColumn) ReadData(r *proto.Reader, rows int) error {
	if _, err := r.ReadFixed(rows); err != nil {
		return fmt.Errorf("Nothing: %w", err)
	}
	c.rows = rows
	return nil
}

func (c *nothingColumn) WriteData(w *proto.Writer) error {
	return w.WriteFixed(make([]byte, c.rows))
}
