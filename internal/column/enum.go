package column

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// enumColumn backs Enum8/Enum16: a fixed-width signed integer on the
// wire with a name<->value mapping carried in the type descriptor
// itself, e.g. Enum8('hello' = 1, 'world' = 2).
type enumColumn struct {
	width     int // 1 or 2
	nameOf    map[int16]string
	valueOf   map[string]int16
	values    []string
	rawValues []int16
}

func newEnumColumn(width int, args []typeArg) (*enumColumn, error) {
	c := &enumColumn{
		width:   width,
		nameOf:  make(map[int16]string, len(args)),
		valueOf: make(map[string]int16, len(args)),
	}
	for _, a := range args {
		name, val, err := parseEnumMember(a.raw)
		if err != nil {
			return nil, err
		}
		c.nameOf[val] = name
		c.valueOf[name] = val
	}
	return c, nil
}

func parseEnumMember(raw string) (string, int16, error) {
	eq := strings.LastIndexByte(raw, '=')
	if eq < 0 {
		return "", 0, fmt.Errorf("enum: malformed member %q", raw)
	}
	label := strings.TrimSpace(raw[:eq])
	if len(label) < 2 || label[0] != '\'' || label[len(label)-1] != '\'' {
		return "", 0, fmt.Errorf("enum: malformed label %q", raw)
	}
	label = strings.ReplaceAll(label[1:len(label)-1], "\\'", "'")
	n, err := strconv.ParseInt(strings.TrimSpace(raw[eq+1:]), 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("enum: malformed value in %q: %w", raw, err)
	}
	return label, int16(n), nil
}

func (c *enumColumn) Type() string {
	members := make([]string, 0, len(c.nameOf))
	for v, n := range c.nameOf {
		members = append(members, fmt.Sprintf("'%s' = %d", n, v))
	}
	name := "Enum8"
	if c.width == 2 {
		name = "Enum16"
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(members, ", "))
}

func (c *enumColumn) Rows() int { return len(c.values) }

func (c *enumColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

// SetValues accepts either the member's string label or its backing
// integer value for each row (spec.md §4.3: "encode accepts either
// the name or the integer").
func (c *enumColumn) SetValues(vals []any) error {
	c.values = make([]string, len(vals))
	for i, v := range vals {
		switch s := v.(type) {
		case string:
			if _, ok := c.valueOf[s]; !ok {
				return fmt.Errorf("%s[%d]: unknown enum label %q", c.Type(), i, s)
			}
			c.values[i] = s
		default:
			n, ok := enumIntArg(v)
			if !ok {
				return fmt.Errorf("%s[%d]: expected string label or integer, got %T", c.Type(), i, v)
			}
			name, ok := c.nameOf[n]
			if !ok {
				return fmt.Errorf("%s[%d]: unknown enum value %d", c.Type(), i, n)
			}
			c.values[i] = name
		}
	}
	return nil
}

// enumIntArg normalizes any of Go's integer kinds to int16 for a
// lookup against nameOf.
func enumIntArg(v any) (int16, bool) {
	switch n := v.(type) {
	case int16:
		return n, true
	case int:
		return int16(n), true
	case int8:
		return int16(n), true
	case int32:
		return int16(n), true
	case int64:
		return int16(n), true
	case uint8:
		return int16(n), true
	case uint16:
		return int16(n), true
	case uint:
		return int16(n), true
	case uint32:
		return int16(n), true
	case uint64:
		return int16(n), true
	default:
		return 0, false
	}
}

func (c *enumColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]string, rows)
	for i := 0; i < rows; i++ {
		var v int16
		if c.width == 1 {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			v = int16(int8(b))
		} else {
			u, err := r.ReadUInt16()
			if err != nil {
				return err
			}
			v = int16(u)
		}
		name, ok := c.nameOf[v]
		if !ok {
			return fmt.Errorf("%s: value %d has no matching label", c.Type(), v)
		}
		c.values[i] = name
	}
	return nil
}

func (c *enumColumn) WriteData(w *proto.Writer) error {
	for _, s := range c.values {
		v := c.valueOf[s]
		if c.width == 1 {
			if err := w.WriteByte(byte(int8(v))); err != nil {
				return err
			}
		} else {
			if err := w.WriteUInt16(uint16(v)); err != nil {
				return err
			}
		}
	}
	return nil
}
