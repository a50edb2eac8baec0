package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleBulkRejectsMalformedRequest(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: bson.Raw{0x01, 0x02}}
	doc, _ := o.handleBulk(context.Background(), env)
	if doc["error"] != "malformed bulk request" {
		t.Fatalf("expected malformed bulk request, got %v", doc)
	}
}

