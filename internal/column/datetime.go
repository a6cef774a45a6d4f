package column

import (
	"fmt"
	"sync"
	"time"

	// Blank import registers the embedded tzdata database as a fallback
	// source for time.LoadLocation so the driver works on minimal
	// container images with no /usr/share/zoneinfo. Zones are still
	// loaded lazily, on first use, not eagerly at init.
	_ "time/tzdata"

	"github.com/tabulardb/go-tabular/internal/proto"
)

var (
	locCacheMu sync.Mutex
	locCache   = map[string]*time.Location{}
)

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	locCacheMu.Lock()
	defer locCacheMu.Unlock()
	if loc, ok := locCache[name]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("column: load timezone %q: %w", name, err)
	}
	locCache[name] = loc
	return loc, nil
}

const secondsPerDay = 86400

// dateColumn is Date: an unsigned 16-bit day count since the Unix
// epoch, always interpreted in UTC.
type dateColumn struct {
	values []time.Time
}

func newDateColumn() *dateColumn { return &dateColumn{} }

func (c *dateColumn) Type() string { return "Date" }
func (c *dateColumn) Rows() int    { return len(c.values) }

func (c *dateColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *dateColumn) SetValues(vals []any) error {
	c.values = make([]time.Time, len(vals))
	for i, v := range vals {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("Date[%d]: expected time.Time, got %T", i, v)
		}
		c.values[i] = t
	}
	return nil
}

func (c *dateColumn) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]time.Time, rows)
	for i := range c.values {
		days, err := r.ReadUInt16()
		if err != nil {
			return err
		}
		c.values[i] = time.Unix(int64(days)*secondsPerDay, 0).UTC()
	}
	return nil
}

func (c *dateColumn) WriteData(w *proto.Writer) error {
	for _, t := range c.values {
		days := t.UTC().Unix() / secondsPerDay
		if err := w.WriteUInt16(uint16(days)); err != nil {
			return err
		}
	}
	return nil
}

// date32Column is Date32: a signed 32-bit day count, able to represent
// dates before 1970.
type date32Column struct {
	values []time.Time
}

func newDate32Column() *date32Column { return &date32Column{} }

func (c *date32Column) Type() string { return "Date32" }
func (c *date32Column) Rows() int    { return len(c.values) }

func (c *date32Column) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *date32Column) SetValues(vals []any) error {
	c.values = make([]time.Time, len(vals))
	for i, v := range vals {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("Date32[%d]: expected time.Time, got %T", i, v)
		}
		c.values[i] = t
	}
	return nil
}

func (c *date32Column) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]time.Time, rows)
	for i := range c.values {
		days, err := r.ReadInt32()
		if err != nil {
			return err
		}
		c.values[i] = time.Unix(int64(days)*secondsPerDay, 0).UTC()
	}
	return nil
}

func (c *date32Column) WriteData(w *proto.Writer) error {
	for _, t := range c.values {
		days := t.UTC().Unix() / secondsPerDay
		if err := w.WriteInt32(int32(days)); err != nil {
			return err
		}
	}
	return nil
}

// dateTimeColumn is DateTime[(timezone)]: an unsigned 32-bit count of
// seconds since the epoch, rendered in the column's timezone (UTC if
// none is given; the server's own timezone is not applied).
type dateTimeColumn struct {
	tzName string
	loc    *time.Location
	values []time.Time
}

func newDateTimeColumn(tz string) *dateTimeColumn {
	return &dateTimeColumn{tzName: tz}
}

func (c *dateTimeColumn) Type() string {
	if c.tzName == "" {
		return "DateTime"
	}
	return fmt.Sprintf("DateTime('%s')", c.tzName)
}

func (c *dateTimeColumn) Rows() int { return len(c.values) }

func (c *dateTimeColumn) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *dateTimeColumn) SetValues(vals []any) error {
	c.values = make([]time.Time, len(vals))
	for i, v := range vals {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("DateTime[%d]: expected time.Time, got %T", i, v)
		}
		c.values[i] = t
	}
	return nil
}

func (c *dateTimeColumn) location() (*time.Location, error) {
	if c.loc != nil {
		return c.loc, nil
	}
	loc, err := loadLocation(c.tzName)
	if err != nil {
		return nil, err
	}
	c.loc = loc
	return loc, nil
}

func (c *dateTimeColumn) ReadData(r *proto.Reader, rows int) error {
	loc, err := c.location()
	if err != nil {
		return err
	}
	c.values = make([]time.Time, rows)
	for i := range c.values {
		secs, err := r.ReadUInt32()
		if err != nil {
			return err
		}
		c.values[i] = time.Unix(int64(secs), 0).In(loc)
	}
	return nil
}

func (c *dateTimeColumn) WriteData(w *proto.Writer) error {
	for _, t := range c.values {
		if err := w.WriteUInt32(uint32(t.Unix())); err != nil {
			return err
		}
	}
	return nil
}

// dateTime64Column is DateTime64(scale[, timezone]): a signed 64-bit
// tick count at 10^-scale second resolution.
type dateTime64Column struct {
	scale  int
	tzName string
	loc    *time.Location
	values []time.Time
}

func newDateTime64Column(scale int, tz string) *dateTime64Column {
	return &dateTime64Column{scale: scale, tzName: tz}
}

func (c *dateTime64Column) Type() string {
	if c.tzName == "" {
		return fmt.Sprintf("DateTime64(%d)", c.scale)
	}
	return fmt.Sprintf("DateTime64(%d, '%s')", c.scale, c.tzName)
}

func (c *dateTime64Column) Rows() int { return len(c.values) }

func (c *dateTime64Column) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *dateTime64Column) SetValues(vals []any) error {
	c.values = make([]time.Time, len(vals))
	for i, v := range vals {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("DateTime64(%d)[%d]: expected time.Time, got %T", c.scale, i, v)
		}
		c.values[i] = t
	}
	return nil
}

func (c *dateTime64Column) location() (*time.Location, error) {
	if c.loc != nil {
		return c.loc, nil
	}
	loc, err := loadLocation(c.tzName)
	if err != nil {
		return nil, err
	}
	c.loc = loc
	return loc, nil
}

func (c *dateTime64Column) tickDivisor() int64 {
	d := int64(1)
	for i := 0; i < c.scale; i++ {
		d *= 10
	}
	return d
}

func (c *dateTime64Column) ReadData(r *proto.Reader, rows int) error {
	loc, err := c.location()
	if err != nil {
		return err
	}
	div := c.tickDivisor()
	c.values = make([]time.Time, rows)
	for i := range c.values {
		ticks, err := r.ReadInt64()
		if err != nil {
			return err
		}
		secs := ticks / div
		rem := ticks % div
		nsec := rem * (1_000_000_000 / div)
		c.values[i] = time.Unix(secs, nsec).In(loc)
	}
	return nil
}

func (c *dateTime64Column) WriteData(w *proto.Writer) error {
	div := c.tickDivisor()
	for _, t := range c.values {
		ticks := t.Unix()*div + int64(t.Nanosecond())/(1_000_000_000/div)
		if err := w.WriteInt64(ticks); err != nil {
			return err
		}
	}
	return nil
}
