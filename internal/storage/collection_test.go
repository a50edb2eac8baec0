package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleRenameCollectionRequiresNewName(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: mustBSON(t, bson.M{})}
	doc, _ := o.handleRenameCollection(context.Background(), env)
	if doc["error"] != "missing newName" {
		t.Fatalf("expected missing newName, got %v", doc)
	}
}

func TestCreateCollectionOptionsBuildsFromCappedSettings(t *testing.T) {
	raw := mustBSON(t, bson.M{"capped": true, "size": int64(1024), "max": int64(100)})
	opts := createCollectionOptions(raw)
	if opts == nil {
		t.Fatal("expected non-nil create-collection options")
	}
}

func TestCreateCollectionOptionsHandlesEmptyDocument(t *testing.T) {
	opts := createCollectionOptions(nil)
	if opts == nil {
		t.Fatal("expected default create-collection options for an empty document")
	}
}
