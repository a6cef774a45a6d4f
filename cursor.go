package tabular

import (
	"context"

	"go.uber.org/multierr"
)

// ColumnDescription names and types one result column, the shape
// Cursor.Description exposes after Execute.
type ColumnDescription struct {
	Name string
	Type string
}

// Cursor is a row-shaping iterator bound to a Connection for one query
// at a time (spec.md §4.8). Closing a cursor does not close its
// connection.
type Cursor struct {
	conn      *Connection
	asDict    bool
	arraysize int

	description []ColumnDescription
	rowcount    int64

	rows        *Rows
	curBlock    *Block
	blockValues [][]any
	blockRow    int
	closed      bool
}

// NewCursor binds a tuple-shaped cursor to conn.
func NewCursor(conn *Connection) *Cursor {
	return &Cursor{conn: conn, arraysize: 1}
}

// NewDictCursor binds a dict-shaped cursor to conn: Fetch* methods
// return map[string]any rows instead of []any tuples.
func NewDictCursor(conn *Connection) *Cursor {
	return &Cursor{conn: conn, asDict: true, arraysize: 1}
}

// Description reports the result columns' names and types, populated
// after Execute.
func (c *Cursor) Description() []ColumnDescription { return c.description }

// RowCount reflects affected rows for writes and fetched rows for
// reads (spec.md §4.8), current as of the last Execute/Fetch call.
func (c *Cursor) RowCount() int64 { return c.rowcount }

// ArraySize is the default batch size for FetchMany when called with
// size<=0.
func (c *Cursor) ArraySize() int { return c.arraysize }

// SetArraySize overrides ArraySize.
func (c *Cursor) SetArraySize(n int) { c.arraysize = n }

// Execute issues a read query (sql with no bound rows) and primes the
// cursor for Fetch*.
func (c *Cursor) Execute(ctx context.Context, sql string, opts ...QueryOption) error {
	if c.closed {
		return &InterfaceError{Op: "Execute", Err: errCursorClosed}
	}
	it, err := c.conn.ExecuteIter(ctx, sql, opts...)
	if err != nil {
		return err
	}
	c.rows = it
	c.curBlock = nil
	c.blockRow = 0
	c.rowcount = 0
	c.description = nil
	return nil
}

// ExecuteMany issues an INSERT of rows and returns the number of rows
// written as RowCount.
func (c *Cursor) ExecuteMany(ctx context.Context, sql string, rows [][]any, opts ...QueryOption) error {
	if c.closed {
		return &InterfaceError{Op: "ExecuteMany", Err: errCursorClosed}
	}
	n, err := c.conn.Execute(ctx, sql, rows, opts...)
	c.rowcount = n
	return err
}

// advance pulls the next non-empty Block into curBlock, returning
// false once the stream is exhausted. It also sets description from
// the first Block it sees (spec.md §4.8: duplicate column names
// follow first-wins semantics, documented here as the Open Question
// resolution).
func (c *Cursor) advance(ctx context.Context) (bool, error) {
	for {
		if c.curBlock != nil && c.blockRow < c.curBlock.NRows() {
			return true, nil
		}
		if c.rows == nil {
			return false, nil
		}
		blk, err := c.rows.Next(ctx)
		if err != nil {
			return false, err
		}
		if blk == nil {
			c.rows = nil
			c.curBlock = nil
			return false, nil
		}
		if c.description == nil {
			for i, name := range blk.Names {
				c.description = append(c.description, ColumnDescription{Name: name, Type: blk.Types[i]})
			}
		}
		c.curBlock = blk
		c.blockRow = 0
		if blk.NRows() == 0 {
			continue
		}
		// Materialize each column once per block: rowAt is called once
		// per row, and col.Values() allocates and decodes the whole
		// column, so calling it per row would make draining a block
		// quadratic in its row count.
		c.blockValues = make([][]any, len(blk.Columns))
		for ci, col := range blk.Columns {
			c.blockValues[ci] = col.Values()
		}
		return true, nil
	}
}

// FetchOne returns the next row, or nil once exhausted (spec.md §4.8,
// §8 scenario 1).
func (c *Cursor) FetchOne(ctx context.Context) (any, error) {
	ok, err := c.advance(ctx)
	if err != nil || !ok {
		return nil, err
	}
	row := c.rowAt(c.blockRow)
	c.blockRow++
	c.rowcount++
	return row, nil
}

// FetchMany returns up to size rows (c.arraysize if size<=0).
func (c *Cursor) FetchMany(ctx context.Context, size int) ([]any, error) {
	if size <= 0 {
		size = c.arraysize
	}
	out := make([]any, 0, size)
	for len(out) < size {
		row, err := c.FetchOne(ctx)
		if err != nil {
			return out, err
		}
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

// FetchAll drains every remaining row (spec.md §8 scenario 5:
// terminates after at most one empty-result iteration step).
func (c *Cursor) FetchAll(ctx context.Context) ([]any, error) {
	var out []any
	for {
		row, err := c.FetchOne(ctx)
		if err != nil {
			return out, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

func (c *Cursor) rowAt(i int) any {
	if c.asDict {
		m := make(map[string]any, len(c.curBlock.Columns))
		for ci := range c.curBlock.Columns {
			name := c.curBlock.Names[ci]
			if _, exists := m[name]; exists {
				continue // first-wins for duplicate projected column names
			}
			m[name] = c.blockValues[ci][i]
		}
		return m
	}
	row := make([]any, len(c.curBlock.Columns))
	for ci := range c.curBlock.Columns {
		row[ci] = c.blockValues[ci][i]
	}
	return row
}

// Close releases the cursor's server-side iteration state, if any is
// in flight, without closing the underlying Connection.
func (c *Cursor) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	if c.rows != nil {
		err = multierr.Append(err, c.rows.Close(ctx))
		c.rows = nil
	}
	return err
}

var errCursorClosed = cursorClosedErr{}

type cursorClosedErr struct{}

func (cursorClosedErr) Error() string { return "tabular: cursor is closed" }
