package tabular

import (
	"context"
	"net"
	"sync"
)

// watcher races a blocking socket operation against ctx, mirroring the
// teacher's watchCancel/startWatcher pair (go-sql-driver/mysql's
// connection_go18.go): since the protocol's read/write calls are plain
// blocking net.Conn calls rather than context-aware ones, cancellation
// is implemented by closing the connection out from under the blocked
// call the moment ctx is done, and distinguishing that induced error
// from a genuine I/O failure afterward.
type watcher struct {
	nc net.Conn

	mu      sync.Mutex
	watching bool
	cancel   context.CancelFunc
	closed   bool
}

func newWatcher(nc net.Conn) *watcher { return &watcher{nc: nc} }

// watch arms cancellation for ctx: if ctx is done before finish is
// called, nc is closed. Every watch call must be paired with exactly
// one finish call.
func (w *watcher) watch(ctx context.Context) (finish func() error) {
	if ctx.Done() == nil {
		return func() error { return nil }
	}
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.watching = true
	w.cancel = cancel
	w.mu.Unlock()

	go func() {
		select {
		case <-watchCtx.Done():
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
			w.nc.Close()
		case <-done:
		}
	}()

	return func() error {
		close(done)
		cancel()
		w.mu.Lock()
		w.watching = false
		closedByCtx := w.closed
		w.mu.Unlock()
		if closedByCtx && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
}
