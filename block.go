package tabular

import (
	"fmt"

	"github.com/tabulardb/go-tabular/internal/column"
	"github.com/tabulardb/go-tabular/internal/proto"
)

// Block is the unit of query I/O: an ordered set of equally-long named
// columns plus the BlockInfo preamble (spec.md §3, §4.4). Block ties
// together internal/proto's header framing and internal/column's
// per-type codecs; it lives at the root package specifically to avoid
// the import cycle a shared internal package would create (column
// already imports proto for its primitive I/O).
type Block struct {
	Info    proto.BlockInfo
	Names   []string
	Types   []string
	Columns []column.Column
}

// NRows returns the row count of this block, or 0 for an empty block.
func (b *Block) NRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Rows()
}

// IsEndOfStream reports whether b is the zero-rows/zero-columns
// sentinel ending a query's data phase.
func (b *Block) IsEndOfStream() bool {
	return len(b.Columns) == 0
}

// ReadBlock decodes a full Block: header, then each column's body in
// turn, using the type descriptor the header carried for that column.
func ReadBlock(r *proto.Reader) (*Block, error) {
	h, err := proto.ReadBlockHeader(r)
	if err != nil {
		return nil, err
	}
	b := &Block{Info: h.Info}
	for _, rc := range h.Columns {
		col, err := column.New(rc.Type)
		if err != nil {
			return nil, fmt.Errorf("tabular: block column %q: %w", rc.Name, err)
		}
		if err := col.ReadData(r, h.NRows); err != nil {
			return nil, fmt.Errorf("tabular: block column %q: %w", rc.Name, err)
		}
		b.Names = append(b.Names, rc.Name)
		b.Types = append(b.Types, rc.Type)
		b.Columns = append(b.Columns, col)
	}
	return b, nil
}

// WriteBlock encodes b: header, then each column's data.
func WriteBlock(w *proto.Writer, b *Block) error {
	h := proto.BlockHeader{Info: b.Info, NRows: b.NRows()}
	for i := range b.Columns {
		h.Columns = append(h.Columns, proto.RawColumn{Name: b.Names[i], Type: b.Types[i]})
	}
	if err := proto.WriteBlockHeader(w, h); err != nil {
		return err
	}
	for _, col := range b.Columns {
		if err := col.WriteData(w); err != nil {
			return err
		}
	}
	return nil
}

// NewInsertBlock builds a Block ready for WriteBlock from column
// names, their type descriptors, and row-major values (one []any per
// row, in column order), the shape Cursor.ExecuteMany accepts.
func NewInsertBlock(names, types []string, rows [][]any) (*Block, error) {
	if len(names) != len(types) {
		return nil, fmt.Errorf("tabular: %d names but %d types", len(names), len(types))
	}
	b := &Block{Names: names, Types: types, Info: proto.BlockInfo{BucketNum: -1}}
	cols := make([][]any, len(names))
	for _, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("tabular: row has %d values, want %d", len(row), len(names))
		}
		for i, v := range row {
			cols[i] = append(cols[i], v)
		}
	}
	for i, typ := range types {
		col, err := column.NewWithValues(typ, cols[i])
		if err != nil {
			return nil, fmt.Errorf("tabular: column %q: %w", names[i], err)
		}
		b.Columns = append(b.Columns, col)
	}
	return b, nil
}
