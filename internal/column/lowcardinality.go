package column

import (
	"fmt"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// LowCardinality dictionary-encodes its inner column: a shared
// dictionary of distinct values plus a per-row index into it
// (spec.md §4.3). Index width is chosen by the number of distinct
// values and carried in a flags word alongside the dictionary.
const (
	lcKeySerializationVersion = 1

	lcIndexUInt8  = 0
	lcIndexUInt16 = 1
	lcIndexUInt32 = 2
	lcIndexUInt64 = 3

	lcHasAdditionalKeysBit = 1 << 9
	lcNeedGlobalDictBit    = 1 << 10
)

// lowCardinalityColumn backs both LowCardinality(T) and
// LowCardinality(Nullable(T)). inner always holds the bare T
// dictionary; nullable records whether the original type wrapped T in
// Nullable, in which case dictionary slot 0 is reserved as the null
// sentinel (spec.md §4.3: "an extra leading null sentinel slot when T
// is nullable"). A non-nullable column reserves no slot, so its
// indices run 0-based over the full dictionary with no offset.
type lowCardinalityColumn struct {
	inner    Column
	nullable bool
	dict     []any
	indices  []uint64
}

func newLowCardinalityColumn(inner Column, nullable bool) (*lowCardinalityColumn, error) {
	switch inner.(type) {
	case *nullableColumn:
		return nil, fmt.Errorf("LowCardinality dictionary type must not itself be Nullable")
	case *arrayColumn, *tupleColumn, *mapColumn, *lowCardinalityColumn:
		return nil, fmt.Errorf("LowCardinality may only wrap a scalar type")
	}
	return &lowCardinalityColumn{inner: inner, nullable: nullable}, nil
}

func (c *lowCardinalityColumn) Type() string {
	inner := c.inner.Type()
	if c.nullable {
		inner = fmt.Sprintf("Nullable(%s)", inner)
	}
	return fmt.Sprintf("LowCardinality(%s)", inner)
}

func (c *lowCardinalityColumn) Rows() int { return len(c.indices) }

func (c *lowCardinalityColumn) Values() []any {
	out := make([]any, len(c.indices))
	for i, idx := range c.indices {
		if c.nullable && idx == 0 {
			out[i] = nil
			continue
		}
		out[i] = c.dict[idx]
	}
	return out
}

func (c *lowCardinalityColumn) SetValues(vals []any) error {
	index := map[any]uint64{}
	var dict []any
	if c.nullable {
		// Slot 0 is the reserved null sentinel; it still needs some
		// placeholder value the inner codec knows how to encode.
		dict = append(dict, zeroValueFor(c.inner))
	}
	indices := make([]uint64, len(vals))
	for i, v := range vals {
		if v == nil {
			if !c.nullable {
				return fmt.Errorf("%s[%d]: nil value requires a Nullable dictionary", c.Type(), i)
			}
			indices[i] = 0
			continue
		}
		idx, ok := index[v]
		if !ok {
			idx = uint64(len(dict))
			dict = append(dict, v)
			index[v] = idx
		}
		indices[i] = idx
	}
	if err := c.inner.SetValues(dict); err != nil {
		return fmt.Errorf("LowCardinality dictionary: %w", err)
	}
	c.dict = dict
	c.indices = indices
	return nil
}

// indexWidthFor returns the narrowest index width able to address n
// distinct dictionary slots (index values 0..n-1), and the flags
// selector for that width.
func indexWidthFor(n uint64) (int, uint64) {
	switch {
	case n <= 1<<8:
		return 1, lcIndexUInt8
	case n <= 1<<16:
		return 2, lcIndexUInt16
	case n <= 1<<32:
		return 4, lcIndexUInt32
	default:
		return 8, lcIndexUInt64
	}
}

func (c *lowCardinalityColumn) ReadData(r *proto.Reader, rows int) error {
	if rows == 0 {
		c.dict = nil
		c.indices = nil
		return nil
	}
	if _, err := r.ReadUInt64(); err != nil { // key serialization version
		return err
	}
	flags, err := r.ReadUInt64()
	if err != nil {
		return err
	}
	widthSel := flags & 0xff
	width := map[uint64]int{lcIndexUInt8: 1, lcIndexUInt16: 2, lcIndexUInt32: 4, lcIndexUInt64: 8}[widthSel]
	if width == 0 {
		return fmt.Errorf("LowCardinality: unknown index width selector %d", widthSel)
	}

	dictSize, err := r.ReadUInt64()
	if err != nil {
		return err
	}
	if err := c.inner.ReadData(r, int(dictSize)); err != nil {
		return fmt.Errorf("LowCardinality dictionary: %w", err)
	}
	// dictSize already counts the reserved null slot when nullable, so
	// the dictionary decoded above is the complete, directly-indexable
	// slot array: no synthetic prepend needed.
	c.dict = c.inner.Values()

	nIndices, err := r.ReadUInt64()
	if err != nil {
		return err
	}
	c.indices = make([]uint64, nIndices)
	for i := range c.indices {
		var v uint64
		switch width {
		case 1:
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			v = uint64(b)
		case 2:
			u, err := r.ReadUInt16()
			if err != nil {
				return err
			}
			v = uint64(u)
		case 4:
			u, err := r.ReadUInt32()
			if err != nil {
				return err
			}
			v = uint64(u)
		default:
			u, err := r.ReadUInt64()
			if err != nil {
				return err
			}
			v = u
		}
		c.indices[i] = v
	}
	_ = rows
	return nil
}

func (c *lowCardinalityColumn) WriteData(w *proto.Writer) error {
	if len(c.indices) == 0 {
		return nil
	}
	// Width must be able to address every slot actually in play,
	// including the reserved null sentinel when nullable: len(c.dict)
	// is that true slot count, not one less than it.
	width, widthSel := indexWidthFor(uint64(len(c.dict)))
	flags := widthSel | lcHasAdditionalKeysBit

	if err := w.WriteUInt64(lcKeySerializationVersion); err != nil {
		return err
	}
	if err := w.WriteUInt64(flags); err != nil {
		return err
	}
	if err := w.WriteUInt64(uint64(len(c.dict))); err != nil {
		return err
	}
	if err := c.inner.WriteData(w); err != nil {
		return fmt.Errorf("LowCardinality dictionary: %w", err)
	}
	if err := w.WriteUInt64(uint64(len(c.indices))); err != nil {
		return err
	}
	for _, idx := range c.indices {
		var err error
		switch width {
		case 1:
			err = w.WriteByte(byte(idx))
		case 2:
			err = w.WriteUInt16(uint16(idx))
		case 4:
			err = w.WriteUInt32(uint32(idx))
		default:
			err = w.WriteUInt64(idx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
