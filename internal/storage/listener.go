package storage

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/client/wire"
	"github.com/oriys/mongosvc/internal/logging"
)

// Listener is the service-side TCP front door: a net.Listener accept loop
// that hands each connection its own goroutine looping decode-frame →
// dispatch → encode-response → write, half-duplex per connection.
type Listener struct {
	orchestrator *Orchestrator
	addr         string

	mu       sync.Mutex
	listener net.Listener
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewListener builds a Listener bound to addr ("host:port"), dispatching
// every accepted connection's requests to orchestrator.
func NewListener(orchestrator *Orchestrator, addr string) *Listener {
	return &Listener{orchestrator: orchestrator, addr: addr}
}

// Start begins accepting connections in the background and returns once
// the listen socket is bound.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("listener already running")
	}

	lis, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}

	l.listener = lis
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.running = true

	l.wg.Add(1)
	go l.acceptLoop()

	logging.Op().Info("storage listener started", "addr", l.addr)
	return nil
}

// Stop closes the listen socket and waits for in-flight connection
// goroutines to drain.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	if l.cancel != nil {
		l.cancel()
	}
	if l.listener != nil {
		l.listener.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	logging.Op().Info("storage listener stopped", "addr", l.addr)
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if !l.isRunning() {
				return
			}
			logging.Op().Warn("accept failed", "err", err)
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.serve(conn)
		}()
	}
}

func (l *Listener) isRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// serve runs the half-duplex request/response loop for one connection
// until the client disconnects, a frame error occurs, or the listener is
// stopped.
func (l *Listener) serve(conn net.Conn) {
	defer conn.Close()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		buf, err := wire.Reassemble(conn, wire.MinFrameSize)
		if err != nil {
			return
		}

		raw, err := wire.Decode(buf)
		if err != nil {
			logging.Op().Warn("malformed request frame", "err", err)
			return
		}

		reply, err := l.orchestrator.Dispatch(l.ctx, raw)
		if err != nil {
			logging.Op().Warn("dispatch failed", "err", err)
			return
		}

		if _, err := wire.Encode(conn, bson.Raw(reply)); err != nil {
			return
		}
	}
}
