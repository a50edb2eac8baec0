package storage

import (
	"context"
	"net"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/client/wire"
)

// TestListenerRoundTripsUnknownAction exercises the full accept-loop →
// decode → dispatch → encode path over a real TCP socket, using an action
// that dispatchAction rejects before ever touching the database.
func TestListenerRoundTripsUnknownAction(t *testing.T) {
	o := testOrchestrator()
	l := NewListener(o, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	conn, err := net.DialTimeout("tcp", l.listener.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := mustBSON(t, bson.M{"action": "frobnicate"})
	if _, err := wire.Encode(conn, req); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf, err := wire.Reassemble(conn, wire.MinFrameSize)
	if err != nil {
		t.Fatalf("reassemble reply: %v", err)
	}
	reply, err := wire.Decode(buf)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}

	var body bson.M
	if err := bson.Unmarshal(reply, &body); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if body["error"] != "invalid action" {
		t.Fatalf("expected invalid action, got %v", body)
	}
}
