package tabular

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// poolStatus tracks the Pool's lifecycle state (spec.md §3).
type poolStatus int

const (
	poolCreated poolStatus = iota
	poolOpening
	poolOpened
	poolClosing
	poolClosed
)

// Pool is a bounded, fair, async acquisition primitive over
// Connections (spec.md §4.7). Acquire suspends (rather than erroring)
// once maxsize connections are outstanding, and wakes waiters in FIFO
// order using golang.org/x/sync/semaphore.Weighted, whose internal
// waiter queue is itself FIFO, exactly the fairness guarantee spec.md
// §4.7 and §8 scenario 4 require, without the driver having to
// hand-roll a waiter list.
type Pool struct {
	cfg *Config
	sem *semaphore.Weighted

	mu      sync.Mutex
	status  poolStatus
	free    []*Connection
	inUse   map[*Connection]struct{}
	size    int
}

// NewPool builds an unopened Pool sized by cfg.MinSize/cfg.MaxSize.
func NewPool(cfg *Config) *Pool {
	return &Pool{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxSize)),
		status: poolCreated,
		inUse:  make(map[*Connection]struct{}),
	}
}

// Startup pre-creates MinSize connections (spec.md §4.7).
func (p *Pool) Startup(ctx context.Context) error {
	p.mu.Lock()
	if p.status != poolCreated {
		p.mu.Unlock()
		return nil
	}
	p.status = poolOpening
	p.mu.Unlock()

	var g errgroup.Group
	conns := make([]*Connection, p.cfg.MinSize)
	for i := 0; i < p.cfg.MinSize; i++ {
		i := i
		g.Go(func() error {
			conn := NewConnection(p.cfg)
			if err := conn.Open(ctx); err != nil {
				return err
			}
			conns[i] = conn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.mu.Lock()
		p.status = poolCreated
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range conns {
		if c == nil {
			continue
		}
		if !p.sem.TryAcquire(1) {
			c.Close()
			continue
		}
		// Released immediately: the permit only needs to exist long
		// enough to prove room under maxsize. A connection sitting in
		// the free list holds no permit of its own (Acquire claims one
		// fresh when it hands the connection to a caller, exactly as
		// it does for a connection returned by Release), so these
		// pre-created connections don't permanently burn capacity on
		// their first checkout.
		p.sem.Release(1)
		p.free = append(p.free, c)
		p.size++
	}
	p.status = poolOpened
	logStructured(p.cfg.Logger, "pool started", zap.Int("size", p.size))
	return nil
}

// Acquire returns a free, verified-open connection, growing the pool
// if below MaxSize, or suspending FIFO-fair until one is released
// (spec.md §4.7).
func (p *Pool) Acquire(ctx context.Context) (*Connection, error) {
	p.mu.Lock()
	if p.status == poolClosed || p.status == poolClosing {
		p.mu.Unlock()
		return nil, NewPoolClosed("Acquire")
	}
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, &InterfaceError{Op: "Acquire", Err: err}
	}

	p.mu.Lock()
	if p.status == poolClosed || p.status == poolClosing {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, NewPoolClosed("Acquire")
	}
	var conn *Connection
	for n := len(p.free); n > 0 && conn == nil; n = len(p.free) {
		conn = p.free[n-1]
		p.free = p.free[:n-1]
		if conn.Closed() {
			// Drop a connection that closed while idle.
			conn = nil
			p.size--
		}
	}
	p.mu.Unlock()

	if conn == nil {
		conn = NewConnection(p.cfg)
		if err := conn.Open(ctx); err != nil {
			p.sem.Release(1)
			return nil, err
		}
		p.mu.Lock()
		p.size++
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.inUse[conn] = struct{}{}
	p.mu.Unlock()
	return conn, nil
}

// Release returns conn to the free list, discarding it (and shrinking
// the pool) if it is closed (spec.md §4.7).
func (p *Pool) Release(conn *Connection) {
	p.mu.Lock()
	delete(p.inUse, conn)
	closing := p.status == poolClosing || p.status == poolClosed
	p.mu.Unlock()

	if conn.Closed() || closing {
		conn.Close()
		p.mu.Lock()
		p.size--
		p.mu.Unlock()
		p.sem.Release(1)
		return
	}

	conn.ResetState()
	p.mu.Lock()
	p.free = append(p.free, conn)
	p.mu.Unlock()
	p.sem.Release(1)
}

// Connection runs fn with an acquired Connection, always releasing it
// afterward, the acquire/release scope spec.md §4.7 names.
func (p *Pool) Connection(ctx context.Context, fn func(*Connection) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Shutdown closes every connection, free and in-use, and marks the
// pool closed. Idempotent (spec.md §4.7).
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.status == poolClosed {
		p.mu.Unlock()
		return nil
	}
	p.status = poolClosing
	all := make([]*Connection, 0, len(p.free)+len(p.inUse))
	all = append(all, p.free...)
	for c := range p.inUse {
		all = append(all, c)
	}
	p.free = nil
	p.inUse = make(map[*Connection]struct{})
	p.mu.Unlock()

	var g errgroup.Group
	var mu sync.Mutex
	var errs error
	for _, c := range all {
		c := c
		g.Go(func() error {
			err := c.Close()
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	p.mu.Lock()
	p.status = poolClosed
	p.size = 0
	p.mu.Unlock()
	return errs
}

// Stats is a point-in-time snapshot of pool occupancy, grounded on
// db-bouncer's TenantPool.Stats (other_examples).
type Stats struct {
	Free    int
	InUse   int
	Size    int
	MinSize int
	MaxSize int
}

// Stats returns the current snapshot.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Free:    len(p.free),
		InUse:   len(p.inUse),
		Size:    p.size,
		MinSize: p.cfg.MinSize,
		MaxSize: p.cfg.MaxSize,
	}
}
