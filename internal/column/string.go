package column

import (
	"fmt"

	"github.com/tabulardb/go-tabular/internal/proto"
)

type stringColumn struct {
	values []string
}

func newStringColumn() *stringColumn { return &stringColumn{} }

func (c *stringColumn) Type() string { return "String" }
func (c *stringColumn) Rows() int    { return len(c.values) }

func (c *stringColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *stringColumn) SetValues(vals []any) error {
	c.values = make([]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("String[%d]: expected string, got %T", i, v)
		}
		c.values[i] = s
	}
	return nil
}

func (c *stringColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]string, rows)
	for i := range c.values {
		s, err := r.ReadStr()
		if err != nil {
			return err
		}
		c.values[i] = s
	}
	return nil
}

func (c *stringColumn) WriteData(w *proto.Writer) error {
	for _, v := range c.values {
		if err := w.WriteStr(v); err != nil {
			return err
		}
	}
	return nil
}

type fixedStringColumn struct {
	n      int
	values []string
}

func newFixedStringColumn(n int) *fixedStringColumn { return &fixedStringColumn{n: n} }

func (c *fixedStringColumn) Type() string { return fmt.Sprintf("FixedString(%d)", c.n) }
func (c *fixedStringColumn) Rows() int    { return len(c.values) }

func (c *fixedStringColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *fixedStringColumn) SetValues(vals []any) error {
	c.values = make([]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("FixedString(%d)[%d]: expected string, got %T", c.n, i, v)
		}
		if len(s) > c.n {
			return fmt.Errorf("FixedString(%d)[%d]: value of length %d overflows column width", c.n, i, len(s))
		}
		c.values[i] = s
	}
	return nil
}

func (c *fixedStringColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]string, rows)
	for i := range c.values {
		s, err := r.ReadFixedStr(c.n)
		if err != nil {
			return err
		}
		c.values[i] = s
	}
	return nil
}

func (c *fixedStringColumn) WriteData(w *proto.Writer) error {
	pad := make([]byte, c.n)
	for _, v := range c.values {
		b := pad[:0]
		b = append(b, v...)
		for len(b) < c.n {
			b = append(b, 0)
		}
		if err := w.WriteFixed(b); err != nil {
			return err
		}
	}
	return nil
}
