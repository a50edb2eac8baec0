// Package dispatch implements the request dispatch and response
// classification layer shared by the synchronous and cooperative-async
// client flavors: acquire a connection, execute, classify the three-way
// outcome, release.
package dispatch

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/client/apierr"
	"github.com/oriys/mongosvc/client/apm"
	"github.com/oriys/mongosvc/client/pool"
	"github.com/oriys/mongosvc/client/request"
	"github.com/oriys/mongosvc/client/transport"
)

// Outcome is the three-way classification of a dispatched call.
type Outcome int

const (
	// PoolFailure means acquire failed; no response is present.
	PoolFailure Outcome = iota
	// CommandFailure means the connection was acquired but returned no
	// document; the connection has been marked invalid.
	CommandFailure
	// Success means a response document is present.
	Success
)

func (o Outcome) String() string {
	switch o {
	case PoolFailure:
		return "pool_failure"
	case CommandFailure:
		return "command_failure"
	case Success:
		return "success"
	default:
		return "unknown"
	}
}

// BufSizeHint is the default initial receive-buffer size used when a
// caller doesn't specify one.
const BufSizeHint = 64 * 1024

// Sync is the blocking dispatcher: every call holds an OS thread for the
// duration of its connection lease, suspended only inside socket I/O.
type Sync struct {
	pool *pool.Pool[*transport.Connection]
}

// NewSync builds a Sync dispatcher over the given connection pool.
func NewSync(p *pool.Pool[*transport.Connection]) *Sync {
	return &Sync{pool: p}
}

// Execute sends doc and classifies the outcome.
func (s *Sync) Execute(doc any) (Outcome, bson.Raw) {
	lease, err := s.pool.Acquire()
	if err != nil {
		return PoolFailure, nil
	}
	defer lease.Release()

	reply, ok := lease.Conn().Execute(doc, BufSizeHint)
	if !ok {
		return CommandFailure, nil
	}
	return Success, reply
}

// ExecuteRequest marshals req to BSON, then acquires a connection and
// sends the encoded bytes with ExecuteRaw, mapping failures to the same
// outcomes Execute reports.
func (s *Sync) ExecuteRequest(req request.Request) (Outcome, bson.Raw) {
	doc, err := req.MarshalBSON()
	if err != nil {
		return CommandFailure, nil
	}
	lease, acquireErr := s.pool.Acquire()
	if acquireErr != nil {
		return PoolFailure, nil
	}
	defer lease.Release()

	reply, ok := lease.Conn().ExecuteRaw(doc, BufSizeHint)
	if !ok {
		return CommandFailure, nil
	}
	return Success, reply
}

// ExecuteTraced is the APM variant: each internal step (encode, acquire,
// execute) is annotated on span with its outcome.
func (s *Sync) ExecuteTraced(ctx context.Context, req request.Request) (Outcome, bson.Raw) {
	span, ctx := apm.Start(ctx, "mongosvc.dispatch")
	defer span.End()
	_ = ctx

	doc, err := req.MarshalBSON()
	span.Step("encode", err)
	if err != nil {
		return CommandFailure, nil
	}

	lease, err := s.pool.Acquire()
	span.Step("acquire", err)
	if err != nil {
		return PoolFailure, nil
	}
	defer lease.Release()

	reply, ok := lease.Conn().ExecuteRaw(doc, BufSizeHint)
	if !ok {
		span.Step("execute", apierr.Command("no document returned", nil))
		return CommandFailure, nil
	}
	span.Step("execute", nil)
	return Success, reply
}

// Async is the cooperative-async dispatcher: a context-aware method whose
// only suspension points are the acquire wait and the socket syscalls
// inside Connection.Execute, run off the calling goroutine so the caller
// can select on ctx.Done().
type Async struct {
	pool *pool.Pool[*transport.Connection]
}

// NewAsync builds an Async dispatcher over the given connection pool.
func NewAsync(p *pool.Pool[*transport.Connection]) *Async {
	return &Async{pool: p}
}

type asyncResult struct {
	outcome Outcome
	reply   bson.Raw
}

// Execute runs the dispatch on a dedicated goroutine and returns as soon
// as either it completes or ctx is canceled, matching the spec's
// cooperative-scheduling model: a canceled context yields a pool-failure
// outcome without waiting for the goroutine, which keeps running to
// completion and releases its lease independently.
func (a *Async) Execute(ctx context.Context, req request.Request) (Outcome, bson.Raw) {
	doc, err := req.MarshalBSON()
	if err != nil {
		return CommandFailure, nil
	}

	resultCh := make(chan asyncResult, 1)
	go func() {
		lease, err := a.pool.Acquire()
		if err != nil {
			resultCh <- asyncResult{outcome: PoolFailure}
			return
		}
		defer lease.Release()

		reply, ok := lease.Conn().ExecuteRaw(doc, BufSizeHint)
		if !ok {
			resultCh <- asyncResult{outcome: CommandFailure}
			return
		}
		resultCh <- asyncResult{outcome: Success, reply: reply}
	}()

	select {
	case <-ctx.Done():
		return PoolFailure, nil
	case res := <-resultCh:
		return res.outcome, res.reply
	}
}
