package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleDistinctRequiresField(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: mustBSON(t, bson.M{})}
	doc, writes := o.handleDistinct(context.Background(), env)
	if doc["error"] != "missing field" {
		t.Fatalf("expected missing field, got %v", doc)
	}
	if writes != 0 {
		t.Fatal("distinct never writes history")
	}
}

func TestHandlePipelineRequiresSpecification(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: mustBSON(t, bson.M{})}
	doc, _ := o.handlePipeline(context.Background(), env)
	if doc["error"] != "no specification" {
		t.Fatalf("expected no specification, got %v", doc)
	}
}

func TestCountOptionsBuildsFromLimitAndSkip(t *testing.T) {
	raw := mustBSON(t, bson.M{"limit": int64(10), "skip": int64(5)})
	opts := countOptions(raw)
	if opts == nil {
		t.Fatal("expected non-nil count options")
	}
}
