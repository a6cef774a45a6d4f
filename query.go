package tabular

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tabulardb/go-tabular/internal/compress"
	"github.com/tabulardb/go-tabular/internal/proto"
)

// QueryOption customizes a single Execute/ExecuteIter call.
type QueryOption func(*queryOptions)

type queryOptions struct {
	settings map[string]string
}

// WithSettings attaches server-side settings to this query only,
// mirroring spec.md §4.5's settings side-channel (the teacher's
// pattern of small typed option structs threaded into packet writers).
func WithSettings(settings map[string]string) QueryOption {
	return func(o *queryOptions) { o.settings = settings }
}

// Rows is a lazy sequence of Blocks for a streaming SELECT
// (spec.md §4.6 execute_iter). Next blocks until the next Block
// arrives, an error occurs, or the stream ends.
type Rows struct {
	conn *Connection
	done bool
	err  error
}

// Next returns the next Block, or (nil, nil) once the stream is
// exhausted. After the stream ends or errors, the connection's busy
// flag is cleared automatically.
func (it *Rows) Next(ctx context.Context) (*Block, error) {
	if it.done {
		return nil, it.err
	}
	blk, err := it.conn.nextDataBlock(ctx)
	if err != nil {
		it.done = true
		it.err = err
		it.conn.exitBusy()
		return nil, err
	}
	if blk == nil {
		it.done = true
		it.conn.exitBusy()
		return nil, nil
	}
	return blk, nil
}

// Close abandons iteration early: sends Cancel and drains to
// EndOfStream so the connection can be reused, per spec.md §4.5
// "Cancellation".
func (it *Rows) Close(ctx context.Context) error {
	if it.done {
		return nil
	}
	defer it.conn.exitBusy()
	it.done = true
	return it.conn.cancelAndDrain(ctx)
}

func mergeOptions(opts []QueryOption) queryOptions {
	var o queryOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (c *Connection) buildClientInfo() proto.ClientInfo {
	return proto.ClientInfo{
		InitialUser:    c.cfg.User,
		InitialQueryID: "",
		InitialAddress: "0.0.0.0:0",
		OSUser:         "",
		ClientHostname: "",
		ClientName:     c.cfg.ClientName,
		VersionMajor:   ClientVersionMajor,
		VersionMinor:   ClientVersionMinor,
		ProtocolVer:    ClientProtocolVersion,
	}
}

func (c *Connection) sendQuery(ctx context.Context, sql string, o queryOptions) error {
	finish := c.watcher.watch(ctx)
	defer finish()

	comp := proto.CompressionDisabled
	if c.method != compress.MethodNone {
		comp = proto.CompressionEnabled
	}
	settings := make([]proto.Setting, 0, len(o.settings))
	for k, v := range o.settings {
		settings = append(settings, proto.Setting{Key: k, Value: v})
	}
	q := proto.QueryRequest{
		QueryID:     uuid.NewString(),
		ClientInfo:  c.buildClientInfo(),
		Settings:    settings,
		Stage:       proto.StageComplete,
		Compression: comp,
		SQL:         sql,
	}
	if err := proto.WriteQuery(c.w, c.revision, q); err != nil {
		return NewProtocolError("write query", err)
	}
	// Empty Data block: "no external tables" terminator (spec.md §4.5
	// step 2).
	empty := &Block{Info: proto.BlockInfo{BucketNum: -1}}
	if err := WriteBlock(c.w, empty); err != nil {
		return NewProtocolError("write empty data block", err)
	}
	if err := c.w.Flush(ctx); err != nil {
		return NewConnectionError("flush query", err)
	}
	return nil
}

// ExecuteIter issues sql and returns a lazy Block sequence for a
// streaming SELECT (spec.md §4.6).
func (c *Connection) ExecuteIter(ctx context.Context, sql string, opts ...QueryOption) (*Rows, error) {
	if err := c.enterBusy("ExecuteIter"); err != nil {
		return nil, err
	}
	o := mergeOptions(opts)
	if err := c.sendQuery(ctx, sql, o); err != nil {
		c.exitBusy()
		return nil, err
	}
	return &Rows{conn: c}, nil
}

// nextDataBlock reads and dispatches packets until the next Data
// block, EndOfStream, or a connection-fatal error. Side packets
// (Progress, ProfileInfo, Log, Totals, Extremes, TableColumns,
// ProfileEvents) are consumed transparently per spec.md §4.5.
func (c *Connection) nextDataBlock(ctx context.Context) (*Block, error) {
	finish := c.watcher.watch(ctx)
	defer finish()

	for {
		code, err := c.r.ReadUvarint()
		if err != nil {
			c.closed.Store(true)
			return nil, NewConnectionError("read packet", err)
		}
		switch byte(code) {
		case proto.ServerData, proto.ServerTotals, proto.ServerExtremes, proto.ServerLog, proto.ServerTableColumns, proto.ServerProfileEvents:
			blk, err := ReadBlock(c.r)
			if err != nil {
				c.closed.Store(true)
				return nil, NewProtocolError("read data block", err)
			}
			if byte(code) != proto.ServerData || blk.IsEndOfStream() {
				continue
			}
			return blk, nil
		case proto.ServerProgress:
			p, err := proto.ReadProgress(c.r)
			if err != nil {
				c.closed.Store(true)
				return nil, NewProtocolError("read progress", err)
			}
			c.mu.Lock()
			c.lastProgress = p
			c.mu.Unlock()
		case proto.ServerProfileInfo:
			p, err := proto.ReadProfile(c.r)
			if err != nil {
				c.closed.Store(true)
				return nil, NewProtocolError("read profile", err)
			}
			c.mu.Lock()
			c.lastProfile = p
			c.mu.Unlock()
		case proto.ServerEndOfStream:
			return nil, nil
		case proto.ServerException:
			exc, err := proto.ReadException(c.r)
			if err != nil {
				c.closed.Store(true)
				return nil, NewProtocolError("read exception", err)
			}
			return nil, exceptionToServerError(exc)
		case proto.ServerPartUUIDs:
			// A count followed by that many 16-byte UUIDs, discarded.
			n, err := c.r.ReadUvarint()
			for i := uint64(0); err == nil && i < n; i++ {
				_, err = c.r.ReadExact(16)
			}
			if err != nil {
				c.closed.Store(true)
				return nil, NewProtocolError("read part uuids", err)
			}
		case proto.ServerReadTaskRequest, proto.ServerTablesStatusResp:
			// Skipped without reading any payload.
			continue
		default:
			c.closed.Store(true)
			return nil, NewProtocolError("unexpected packet", fmt.Errorf("code %d", code))
		}
	}
}

// cancelAndDrain sends Cancel and reads until EndOfStream or error,
// per spec.md §4.5/§5 cancellation rules. Caller-initiated
// cancellation must be idempotent; calling this on an already-finished
// stream is a no-op from the caller's perspective since Rows.Close
// checks `done` first.
func (c *Connection) cancelAndDrain(ctx context.Context) error {
	finish := c.watcher.watch(ctx)
	defer finish()

	if err := c.w.WriteUvarint(uint64(proto.ClientCancel)); err != nil {
		c.closed.Store(true)
		return NewConnectionError("write cancel", err)
	}
	if err := c.w.Flush(ctx); err != nil {
		c.closed.Store(true)
		return NewConnectionError("flush cancel", err)
	}
	for {
		blk, err := c.nextDataBlock(ctx)
		if err != nil {
			if _, ok := err.(*ServerError); ok {
				return nil
			}
			return err
		}
		if blk == nil {
			return nil
		}
	}
}

// Execute issues sql. With no rows, it drains a SELECT-shaped query to
// completion and returns the number of rows fetched. With rows, it
// performs an INSERT: waits for the server's schema-describing Data
// block, then writes the caller's rows as one Data block followed by
// the empty terminator, and finally drains acknowledgement packets up
// to EndOfStream.
func (c *Connection) Execute(ctx context.Context, sql string, rows [][]any, opts ...QueryOption) (int64, error) {
	if len(rows) == 0 {
		return c.executeSelect(ctx, sql, opts...)
	}
	return c.executeInsert(ctx, sql, rows, opts...)
}

func (c *Connection) executeSelect(ctx context.Context, sql string, opts ...QueryOption) (int64, error) {
	it, err := c.ExecuteIter(ctx, sql, opts...)
	if err != nil {
		return 0, err
	}
	var n int64
	for {
		blk, err := it.Next(ctx)
		if err != nil {
			return n, err
		}
		if blk == nil {
			return n, nil
		}
		n += int64(blk.NRows())
	}
}

func (c *Connection) executeInsert(ctx context.Context, sql string, rows [][]any, opts ...QueryOption) (int64, error) {
	if err := c.enterBusy("Execute"); err != nil {
		return 0, err
	}
	defer c.exitBusy()

	o := mergeOptions(opts)
	if err := c.sendQuery(ctx, sql, o); err != nil {
		return 0, err
	}

	schema, err := c.nextDataBlock(ctx)
	if err != nil {
		return 0, err
	}
	if schema == nil {
		return 0, NewProtocolError("insert schema", fmt.Errorf("server closed stream before describing target schema"))
	}

	insertBlock, err := NewInsertBlock(schema.Names, schema.Types, rows)
	if err != nil {
		return 0, &InterfaceError{Op: "Execute", Err: err}
	}

	if err := func() error {
		finish := c.watcher.watch(ctx)
		defer finish()
		if err := WriteBlock(c.w, insertBlock); err != nil {
			return NewProtocolError("write insert block", err)
		}
		if err := WriteBlock(c.w, &Block{Info: proto.BlockInfo{BucketNum: -1}}); err != nil {
			return NewProtocolError("write insert terminator", err)
		}
		return c.w.Flush(ctx)
	}(); err != nil {
		c.closed.Store(true)
		return 0, err
	}

	for {
		blk, err := c.nextDataBlock(ctx)
		if err != nil {
			return 0, err
		}
		if blk == nil {
			return int64(len(rows)), nil
		}
	}
}
