package storage

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestRetrieveFindOptionsBuildsFromSortAndLimit(t *testing.T) {
	raw := mustBSON(t, bson.M{"sort": bson.M{"name": 1}, "limit": int64(5)})
	opts := retrieveFindOptions(raw)
	if opts == nil {
		t.Fatal("expected non-nil find options")
	}
}

func TestRetrieveFindOptionsHandlesEmptyDocument(t *testing.T) {
	opts := retrieveFindOptions(nil)
	if opts == nil {
		t.Fatal("expected default find options for an empty document")
	}
}

func TestRetrieveFindOneOptionsBuildsFromProjection(t *testing.T) {
	raw := mustBSON(t, bson.M{"projection": bson.M{"name": 1}, "returnKey": true})
	opts := retrieveFindOneOptions(raw)
	if opts == nil {
		t.Fatal("expected non-nil find-one options")
	}
}
