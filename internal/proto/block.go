package proto

// blockInfoFieldOverflows and blockInfoFieldBucketNum are the field-ids
// used in the BlockInfo field-id/value preamble (spec.md §4.4).
const (
	blockInfoFieldOverflows = 1
	blockInfoFieldBucketNum = 2
	blockInfoFieldEnd       = 0
)

// BlockInfo is the per-block preamble: whether this block holds
// "overflow" rows from a GROUP BY ... WITH TOTALS query, and which
// bucket of a two-level aggregation it belongs to (-1 if not
// applicable).
type BlockInfo struct {
	IsOverflows bool
	BucketNum   int32
}

// ReadBlockInfo reads a field-id/value sequence terminated by field-id
// 0, per spec.md §4.4.
func ReadBlockInfo(r *Reader) (BlockInfo, error) {
	bi := BlockInfo{BucketNum: -1}
	for {
		fieldNum, err := r.ReadUvarint()
		if err != nil {
			return bi, err
		}
		switch fieldNum {
		case blockInfoFieldEnd:
			return bi, nil
		case blockInfoFieldOverflows:
			if bi.IsOverflows, err = r.ReadBool(); err != nil {
				return bi, err
			}
		case blockInfoFieldBucketNum:
			if bi.BucketNum, err = r.ReadInt32(); err != nil {
				return bi, err
			}
		default:
			return bi, ErrMalformedBlock
		}
	}
}

// WriteBlockInfo writes bi followed by the field-id-0 terminator.
func WriteBlockInfo(w *Writer, bi BlockInfo) error {
	if err := w.WriteUvarint(blockInfoFieldOverflows); err != nil {
		return err
	}
	if err := w.WriteBool(bi.IsOverflows); err != nil {
		return err
	}
	if err := w.WriteUvarint(blockInfoFieldBucketNum); err != nil {
		return err
	}
	if err := w.WriteInt32(bi.BucketNum); err != nil {
		return err
	}
	return w.WriteUvarint(blockInfoFieldEnd)
}

// RawColumn is a column's name and type descriptor as they appear on
// the wire, before the type descriptor has been resolved to a concrete
// internal/column.Column implementation. Block decoding happens in two
// passes (see the root package's ReadBlock) because the column factory
// needs the type string before it can read the column body.
type RawColumn struct {
	Name string
	Type string
}

// BlockHeader is the Block shape with no data read yet: BlockInfo plus
// row/column counts and per-column name/type pairs.
type BlockHeader struct {
	Info    BlockInfo
	NRows   int
	Columns []RawColumn
}

// IsEndOfStream reports whether this header describes the
// zero-rows/zero-columns sentinel that ends a query's data phase
// (spec.md §4.4).
func (h BlockHeader) IsEndOfStream() bool {
	return h.NRows == 0 && len(h.Columns) == 0
}

// ReadBlockHeader reads everything up to (but not including) the first
// column's data: BlockInfo, n_columns, n_rows, and each column's name
// and type descriptor string. The caller then dispatches to
// internal/column to read each column's body in turn.
func ReadBlockHeader(r *Reader) (BlockHeader, error) {
	var h BlockHeader
	info, err := ReadBlockInfo(r)
	if err != nil {
		return h, err
	}
	h.Info = info

	nCols, err := r.ReadUvarint()
	if err != nil {
		return h, err
	}
	nRows, err := r.ReadUvarint()
	if err != nil {
		return h, err
	}
	h.NRows = int(nRows)
	h.Columns = make([]RawColumn, nCols)
	for i := range h.Columns {
		name, err := r.ReadStr()
		if err != nil {
			return h, err
		}
		typ, err := r.ReadStr()
		if err != nil {
			return h, err
		}
		h.Columns[i] = RawColumn{Name: name, Type: typ}
	}
	return h, nil
}

// WriteBlockHeader writes everything ReadBlockHeader reads; the caller
// writes each column's body immediately after via internal/column.
func WriteBlockHeader(w *Writer, h BlockHeader) error {
	if err := WriteBlockInfo(w, h.Info); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(len(h.Columns))); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(h.NRows)); err != nil {
		return err
	}
	for _, c := range h.Columns {
		if err := w.WriteStr(c.Name); err != nil {
			return err
		}
		if err := w.WriteStr(c.Type); err != nil {
			return err
		}
	}
	return nil
}

// ErrMalformedBlock is returned for an unrecognized BlockInfo field-id
// while decoding a block.
var ErrMalformedBlock = blockErr{}

type blockErr struct{}

func (blockErr) Error() string { return "proto: malformed block" }
