package tabular

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// fakeServer accepts connections on an ephemeral local port and
// completes just enough of the handshake (spec.md §4.5) for
// Connection.Open to succeed, then holds each connection open until
// the test tears it down. It never replies to anything past Hello:
// the pool tests below only exercise acquire/release/shutdown, never a
// query.
type fakeServer struct {
	ln net.Listener
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{ln: ln}
	go s.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeServer) addr() string { return s.ln.Addr().String() }

func (s *fakeServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	r := proto.NewReader(conn)
	w := proto.NewWriter(conn)

	code, err := r.ReadUvarint()
	if err != nil || byte(code) != proto.ClientHello {
		return
	}
	if _, err := r.ReadStr(); err != nil { // client name
		return
	}
	for i := 0; i < 3; i++ { // version major/minor, protocol version
		if _, err := r.ReadUvarint(); err != nil {
			return
		}
	}
	for i := 0; i < 3; i++ { // database, user, password
		if _, err := r.ReadStr(); err != nil {
			return
		}
	}

	if err := w.WriteUvarint(uint64(proto.ServerHello)); err != nil {
		return
	}
	if err := w.WriteStr("fakeserver"); err != nil {
		return
	}
	if err := w.WriteUvarint(22); err != nil {
		return
	}
	if err := w.WriteUvarint(8); err != nil {
		return
	}
	if err := w.WriteUvarint(54451); err != nil {
		return
	}
	if err := w.WriteStr("UTC"); err != nil {
		return
	}
	if err := w.WriteStr("fakeserver"); err != nil {
		return
	}
	if err := w.WriteUvarint(1); err != nil {
		return
	}
	if err := w.Flush(context.Background()); err != nil {
		return
	}

	// Hold the connection open (discard anything further) until the
	// test closes it from the client side.
	buf := make([]byte, 256)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

func testConfig(t *testing.T, addr string, minSize, maxSize int) *Config {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	cfg, err := NewConfig("clickhouse://"+host+":"+port+"/default", WithPoolSize(minSize, maxSize))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func TestPoolStartupPreCreatesMinSize(t *testing.T) {
	srv := startFakeServer(t)
	cfg := testConfig(t, srv.addr(), 2, 4)
	p := NewPool(cfg)
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	stats := p.Stats()
	if stats.Free != 2 || stats.Size != 2 {
		t.Errorf("got %+v, want Free=2 Size=2", stats)
	}
}

func TestPoolAcquireGrowsUpToMaxSize(t *testing.T) {
	srv := startFakeServer(t)
	cfg := testConfig(t, srv.addr(), 0, 2)
	p := NewPool(cfg)
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	c2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}
	stats := p.Stats()
	if stats.InUse != 2 || stats.Size != 2 {
		t.Fatalf("got %+v, want InUse=2 Size=2", stats)
	}

	// |free| + |in_use| <= maxsize at every quiescent point (spec.md §8).
	if stats.Free+stats.InUse > cfg.MaxSize {
		t.Fatalf("free+inUse=%d exceeds maxsize=%d", stats.Free+stats.InUse, cfg.MaxSize)
	}

	p.Release(c1)
	p.Release(c2)
}

func TestPoolAcquireBlocksAtMaxSizeAndFIFOWakesWaiter(t *testing.T) {
	srv := startFakeServer(t)
	cfg := testConfig(t, srv.addr(), 1, 2)
	p := NewPool(cfg)
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}

	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	c2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	// A third acquire must suspend: pool is at maxsize=2 with both
	// connections checked out (spec.md §8 scenario 4).
	third := make(chan *Connection, 1)
	go func() {
		c, err := p.Acquire(context.Background())
		if err != nil {
			close(third)
			return
		}
		third <- c
	}()

	select {
	case <-third:
		t.Fatal("third Acquire should have suspended with the pool at maxsize")
	case <-time.After(150 * time.Millisecond):
	}

	p.Release(c1)

	select {
	case c3 := <-third:
		if c3 == nil {
			t.Fatal("third Acquire failed")
		}
		p.Release(c3)
	case <-time.After(5 * time.Second):
		t.Fatal("releasing a connection should have woken the waiting third Acquire")
	}

	p.Release(c2)
}

func TestPoolReleaseDiscardsClosedConnection(t *testing.T) {
	srv := startFakeServer(t)
	cfg := testConfig(t, srv.addr(), 0, 2)
	p := NewPool(cfg)
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	sizeBefore := p.Stats().Size

	conn.Close() // simulate a mid-query socket failure (spec.md §8 scenario 6)
	p.Release(conn)

	stats := p.Stats()
	if stats.Size != sizeBefore-1 {
		t.Errorf("Size = %d, want %d after discarding a closed connection", stats.Size, sizeBefore-1)
	}
	if stats.Free != 0 {
		t.Errorf("Free = %d, want 0: a closed connection must not return to the free list", stats.Free)
	}
}

func TestPoolShutdownIsIdempotentAndClosesEverything(t *testing.T) {
	srv := startFakeServer(t)
	cfg := testConfig(t, srv.addr(), 2, 2)
	p := NewPool(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}

	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("second Shutdown should be a no-op, got: %v", err)
	}

	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatal("Acquire after Shutdown should fail")
	}
}
