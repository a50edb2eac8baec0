package pool

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeConn struct {
	id      int64
	valid   atomic.Bool
	closed  atomic.Bool
	lastUse time.Time
}

func (f *fakeConn) Valid() bool    { return f.valid.Load() && !f.closed.Load() }
func (f *fakeConn) Close() error   { f.closed.Store(true); return nil }
func (f *fakeConn) Touch()         { f.lastUse = time.Now() }
func (f *fakeConn) IdleSince() time.Duration {
	return time.Since(f.lastUse)
}

func newFakeFactory() (Factory[*fakeConn], *atomic.Int64) {
	var counter atomic.Int64
	factory := func() (*fakeConn, error) {
		id := counter.Add(1)
		c := &fakeConn{id: id, lastUse: time.Now()}
		c.valid.Store(true)
		return c, nil
	}
	return factory, &counter
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	factory, _ := newFakeFactory()
	p, err := New(factory, Config{InitialSize: 1, MaxPoolSize: 2, MaxIdleTime: time.Minute, AcquireTimeout: time.Second})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	lease, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	stats := p.Stats()
	if stats.Leased != 1 {
		t.Fatalf("expected 1 leased, got %d", stats.Leased)
	}

	lease.Release()
	stats = p.Stats()
	if stats.Idle != 1 || stats.Leased != 0 {
		t.Fatalf("expected 1 idle 0 leased after release, got %+v", stats)
	}
}

func TestAcquireGrowsUpToMaxPoolSize(t *testing.T) {
	factory, counter := newFakeFactory()
	p, err := New(factory, Config{InitialSize: 0, MaxPoolSize: 2, AcquireTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	l1, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	l2, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if counter.Load() != 2 {
		t.Fatalf("expected 2 connections constructed, got %d", counter.Load())
	}

	if _, err := p.Acquire(); err == nil {
		t.Fatal("expected pool-failure when saturated past AcquireTimeout")
	}

	l1.Release()
	l2.Release()
}

func TestAcquireRespectsMaxConnections(t *testing.T) {
	factory, _ := newFakeFactory()
	p, err := New(factory, Config{MaxPoolSize: 5, MaxConnections: 1, AcquireTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	lease, err := p.Acquire()
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	lease.Release()

	if _, err := p.Acquire(); err == nil {
		t.Fatal("expected pool-failure once lifetime lease cap reached")
	}
}

func TestReleaseDestroysInvalidConnection(t *testing.T) {
	factory, _ := newFakeFactory()
	p, err := New(factory, Config{MaxPoolSize: 2, AcquireTimeout: time.Second})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	lease, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	lease.Conn().valid.Store(false)
	lease.Release()

	stats := p.Stats()
	if stats.Idle != 0 || stats.Total != 0 {
		t.Fatalf("expected invalid connection destroyed, got %+v", stats)
	}
}

func TestIdleEvictionOnAcquire(t *testing.T) {
	factory, counter := newFakeFactory()
	p, err := New(factory, Config{InitialSize: 1, MaxPoolSize: 2, MaxIdleTime: time.Millisecond, AcquireTimeout: time.Second})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	lease, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	lease.Release()

	if counter.Load() < 2 {
		t.Fatalf("expected idle connection evicted and replaced, constructed %d", counter.Load())
	}
}
