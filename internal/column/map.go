package column

import (
	"fmt"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// mapColumn is Map(K, V), wire-identical to Array(Tuple(K, V))
// (spec.md §4.3): a cumulative offset per row over flattened
// key/value pairs. Values are presented as []KV rather than a Go map
// so each row keeps its pairs in wire order and keys need not be
// comparable Go values.
type mapColumn struct {
	backing *arrayColumn
	pair    *tupleColumn
}

// KV is one key/value pair of a Map column row.
type KV struct {
	Key   any
	Value any
}

func newMapColumn(key, val Column) *mapColumn {
	pair := newTupleColumn([]Column{key, val})
	return &mapColumn{backing: newArrayColumn(pair), pair: pair}
}

func (c *mapColumn) Type() string {
	return fmt.Sprintf("Map(%s, %s)", c.pair.elems[0].Type(), c.pair.elems[1].Type())
}

func (c *mapColumn) Rows() int { return c.backing.Rows() }

func (c *mapColumn) Values() []any {
	raw := c.backing.Values()
	out := make([]any, len(raw))
	for i, r := range raw {
		rows := r.([]any)
		kvs := make([]KV, len(rows))
		for j, pairVal := range rows {
			p := pairVal.([]any)
			kvs[j] = KV{Key: p[0], Value: p[1]}
		}
		out[i] = kvs
	}
	return out
}

func (c *mapColumn) SetValues(vals []any) error {
	raw := make([]any, len(vals))
	for i, v := range vals {
		kvs, ok := v.([]KV)
		if !ok {
			return fmt.Errorf("Map[%d]: expected []column.KV, got %T", i, v)
		}
		rows := make([]any, len(kvs))
		for j, kv := range kvs {
			rows[j] = []any{kv.Key, kv.Value}
		}
		raw[i] = rows
	}
	return c.backing.SetValues(raw)
}

func (c *mapColumn) ReadData(r *proto.Reader, rows int) error {
	return c.backing.ReadData(r, rows)
}

func (c *mapColumn) WriteData(w *proto.Writer) error {
	return c.backing.WriteData(w)
}
