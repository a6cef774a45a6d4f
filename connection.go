package tabular

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tabulardb/go-tabular/internal/compress"
	"github.com/tabulardb/go-tabular/internal/proto"
)

// Connection is a single-socket state machine wrapping the wire
// protocol (spec.md §4.6). It is not safe for concurrent use; the Pool
// enforces exclusivity by checkout. At most one in-flight query is
// permitted at a time, enforced by the busy flag below.
type Connection struct {
	cfg *Config

	mu      sync.Mutex
	nc      net.Conn
	r       *proto.Reader
	w       *proto.Writer
	watcher *watcher

	serverInfo proto.ServerInfo
	revision   uint64
	method     compress.Method

	opened atomic.Bool
	closed atomic.Bool
	busy   atomic.Bool

	lastProgress proto.Progress
	lastProfile  proto.Profile
}

// NewConnection builds an unopened Connection from cfg. Call Open
// before issuing any query.
func NewConnection(cfg *Config) *Connection {
	return &Connection{cfg: cfg}
}

// ServerInfo exposes the handshake's negotiated server fields.
func (c *Connection) ServerInfo() proto.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Opened reports whether Open has completed successfully.
func (c *Connection) Opened() bool { return c.opened.Load() }

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool { return c.closed.Load() }

// Open dials the server, performs the handshake, and negotiates
// compression. Idempotent: calling Open on an already-open connection
// is a no-op (spec.md §4.6).
func (c *Connection) Open(ctx context.Context) error {
	if c.opened.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opened.Load() {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	var d net.Dialer
	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}
	nc, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return NewConnectionError("dial", err)
	}

	c.nc = nc
	c.watcher = newWatcher(nc)
	c.r = proto.NewReader(nc)
	c.w = proto.NewWriter(nc)
	c.r.SetReadTimeout(c.cfg.SendReceiveTimeout)
	c.w.SetWriteTimeout(c.cfg.SendReceiveTimeout)

	if err := c.handshake(ctx); err != nil {
		nc.Close()
		return err
	}

	c.negotiateCompression()
	c.opened.Store(true)
	logStructured(c.cfg.Logger, "connection opened",
		zap.String("host", c.cfg.Host), zap.Uint64("revision", c.revision),
		zap.String("server", c.serverInfo.Name))
	return nil
}

func (c *Connection) handshake(ctx context.Context) error {
	finish := c.watcher.watch(ctx)
	defer finish()

	hello := proto.HelloRequest{
		ClientName:      c.cfg.ClientName,
		VersionMajor:    ClientVersionMajor,
		VersionMinor:    ClientVersionMinor,
		ProtocolVersion: ClientProtocolVersion,
		Database:        c.cfg.Database,
		User:            c.cfg.User,
		Password:        c.cfg.Password,
	}
	if err := proto.WriteHello(c.w, hello); err != nil {
		return NewConnectionError("write hello", err)
	}
	if err := c.w.Flush(ctx); err != nil {
		return NewConnectionError("flush hello", err)
	}

	code, err := c.r.ReadUvarint()
	if err != nil {
		return NewConnectionError("read hello response", err)
	}
	switch byte(code) {
	case proto.ServerHello:
		si, err := proto.ReadHello(c.r)
		if err != nil {
			return NewConnectionError("decode hello", err)
		}
		c.serverInfo = si
		c.revision = si.Revision
		return nil
	case proto.ServerException:
		exc, err := proto.ReadException(c.r)
		if err != nil {
			return NewConnectionError("decode handshake exception", err)
		}
		return exceptionToServerError(exc)
	default:
		return NewConnectionError("handshake", fmt.Errorf("unexpected packet %s during handshake", proto.ServerPacketName(byte(code))))
	}
}

// negotiateCompression picks the frame method this connection will use
// and, once chosen, installs compress.Reader/Writer as the proto
// Reader/Writer's underlying source/sink so every byte exchanged after
// the handshake is transparently frame-compressed (spec.md §4.2); the
// packet and block codecs above never see compression directly.
func (c *Connection) negotiateCompression() {
	c.method = compress.MethodNone
	if c.cfg.Compression == CompressionNone || !compress.Available() {
		return
	}
	switch c.cfg.Compression {
	case CompressionLZ4:
		c.method = compress.MethodLZ4
	case CompressionZSTD:
		c.method = compress.MethodZSTD
	}
	if c.method != compress.MethodNone {
		c.r.SetCompressedSource(compress.NewReader(c.nc))
		c.w.SetCompressedSink(compress.NewWriter(c.nc, c.method))
	}
}

func exceptionToServerError(e *proto.Exception) *ServerError {
	se := &ServerError{Code: e.Code, Name: e.Name, Message: e.Message, StackTrace: e.StackTrace}
	if e.Nested != nil {
		se.Nested = exceptionToServerError(e.Nested)
	}
	return se
}

// Close performs a best-effort socket close and marks the connection
// closed. Idempotent.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nc == nil {
		return nil
	}
	return c.nc.Close()
}

// Ping sends a Ping packet and waits for Pong under ctx's deadline. It
// never returns an error for a simple timeout, only a bool
// (spec.md §4.6); connection-fatal errors still propagate.
func (c *Connection) Ping(ctx context.Context) (bool, error) {
	if err := c.enterBusy("Ping"); err != nil {
		return false, err
	}
	defer c.exitBusy()

	finish := c.watcher.watch(ctx)
	defer finish()

	if err := c.w.WriteUvarint(uint64(proto.ClientPing)); err != nil {
		return false, nil
	}
	if err := c.w.Flush(ctx); err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		c.closed.Store(true)
		return false, NewConnectionError("ping", err)
	}
	code, err := c.r.ReadUvarint()
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		c.closed.Store(true)
		return false, NewConnectionError("ping", err)
	}
	return byte(code) == proto.ServerPong, nil
}

func (c *Connection) enterBusy(op string) error {
	if c.closed.Load() {
		return NewConnectionError(op, fmt.Errorf("connection is closed"))
	}
	if !c.busy.CompareAndSwap(false, true) {
		return NewConnectionBusy(op)
	}
	return nil
}

func (c *Connection) exitBusy() { c.busy.Store(false) }

// ResetState clears transient per-query context (last progress/profile
// counters) so a reused pooled connection does not leak server state
// across checkouts. Per spec.md §9's Open Question, this is
// client-side only: it does not issue a server-side session reset.
func (c *Connection) ResetState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastProgress = proto.Progress{}
	c.lastProfile = proto.Profile{}
}

// LastProgress returns the most recent Progress side-channel update
// observed during the last query.
func (c *Connection) LastProgress() proto.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastProgress
}
