package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleIndexRequiresSpec(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: mustBSON(t, bson.M{})}
	doc, _ := o.handleIndex(context.Background(), env)
	if doc["error"] != "missing index specification" {
		t.Fatalf("expected missing index specification, got %v", doc)
	}
}
