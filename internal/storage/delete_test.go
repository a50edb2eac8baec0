package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleDeleteRequiresFilter(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: mustBSON(t, bson.M{})}
	doc, writes := o.handleDelete(context.Background(), env)
	if doc["error"] != "missing filter" {
		t.Fatalf("expected missing filter, got %v", doc)
	}
	if writes != 0 {
		t.Fatal("expected zero history writes when the request is rejected")
	}
}
