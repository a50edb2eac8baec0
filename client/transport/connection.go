// Package transport owns the single-socket half of the client: a
// Connection speaks the framed BSON protocol over one TCP socket, retries
// a failed send exactly once against a freshly reopened socket, and
// self-marks invalid on any failure so the pool that leases it knows to
// discard rather than recycle it.
package transport

import (
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/client/apierr"
	"github.com/oriys/mongosvc/client/wire"
)

// Config describes how to reach one service instance.
type Config struct {
	Host           string
	Port           string
	DialTimeout    time.Duration
	KeepAlive      time.Duration
	DefaultBufSize int
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Connection owns one TCP socket to the intermediary service.
type Connection struct {
	cfg   Config
	mu    sync.Mutex
	conn  net.Conn
	valid bool

	createdAt time.Time
	lastUsed  time.Time
}

// Dial resolves host:port, opens the socket, and enables TCP keep-alive.
// A resolution or initial-connect failure is fatal and surfaced directly.
func Dial(cfg Config) (*Connection, error) {
	c := &Connection{cfg: cfg, createdAt: time.Now()}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) open() error {
	d := net.Dialer{Timeout: c.cfg.DialTimeout, KeepAlive: c.cfg.KeepAlive}
	conn, err := d.Dial("tcp", c.cfg.addr())
	if err != nil {
		return apierr.Pool("dial "+c.cfg.addr(), err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		if c.cfg.KeepAlive > 0 {
			_ = tc.SetKeepAlivePeriod(c.cfg.KeepAlive)
		}
		_ = tc.SetNoDelay(true)
		setSocketBuffers(tc, c.cfg.DefaultBufSize)
	}
	c.conn = conn
	c.valid = true
	c.lastUsed = time.Now()
	return nil
}

func (c *Connection) reopen() error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return c.open()
}

// Valid reports whether the connection is usable without reopening.
func (c *Connection) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid && c.conn != nil
}

// Invalidate marks the connection unusable; the next Execute call (or the
// pool, on release) will close and reopen it.
func (c *Connection) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Close releases the underlying socket.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.valid = false
	return err
}

// Touch records the current time as last-used, for pool idle-eviction
// bookkeeping.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
}

// IdleSince reports how long the connection has sat idle.
func (c *Connection) IdleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastUsed)
}

// Execute sends doc and waits for one framed reply. bufSizeHint sizes the
// initial receive chunk. It returns (document, true) on success, or
// (nil, false) once the connection has been marked invalid by either a
// send failure surviving one retry, a receive failure, or an invalid
// received frame.
func (c *Connection) Execute(doc any, bufSizeHint int) (bson.Raw, bool) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, false
	}
	return c.ExecuteRaw(data, bufSizeHint)
}

// ExecuteRaw is like Execute but takes an already-marshaled BSON document,
// for callers (the dispatcher) that marshal typed requests themselves,
// e.g. to attach APM annotations around the encode step.
func (c *Connection) ExecuteRaw(data []byte, bufSizeHint int) (bson.Raw, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.valid {
		if err := c.reopen(); err != nil {
			return nil, false
		}
	}

	if _, err := c.conn.Write(data); err != nil {
		if err := c.reopen(); err != nil {
			return nil, false
		}
		if _, err := c.conn.Write(data); err != nil {
			c.valid = false
			return nil, false
		}
	}

	if bufSizeHint <= 0 {
		bufSizeHint = c.cfg.DefaultBufSize
	}
	frame, err := wire.Reassemble(c.conn, bufSizeHint)
	if err != nil {
		c.valid = false
		return nil, false
	}

	reply, err := wire.Decode(frame)
	if err != nil {
		c.valid = false
		return nil, false
	}

	c.lastUsed = time.Now()
	return reply, true
}

// setSocketBuffers raises SO_RCVBUF/SO_SNDBUF to bufSize on the raw file
// descriptor. net.TCPConn exposes neither option directly, so this drops
// to the syscall layer; a failure here is non-fatal, the kernel default
// still works, just with more syscalls per large frame.
func setSocketBuffers(tc *net.TCPConn, bufSize int) {
	if bufSize <= 0 {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bufSize)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bufSize)
	})
}
