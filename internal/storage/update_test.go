package storage

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestNormalizeSetWrapsBareFields(t *testing.T) {
	doc := mustBSON(t, bson.M{"_id": bson.NewObjectID(), "name": "widget", "qty": int32(3)})
	got := normalizeSet(doc)

	set, ok := got["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected $set clause, got %v", got)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 fields wrapped into $set, got %v", set)
	}
	if _, hasID := set["_id"]; hasID {
		t.Fatal("_id must not be carried into $set")
	}
}

func TestNormalizeSetPreservesUnset(t *testing.T) {
	doc := mustBSON(t, bson.M{"$unset": bson.M{"stale": ""}})
	got := normalizeSet(doc)
	if _, ok := got["$unset"]; !ok {
		t.Fatalf("expected $unset to be preserved verbatim, got %v", got)
	}
	if _, ok := got["$set"]; ok {
		t.Fatal("did not expect a $set clause")
	}
}

func TestNormalizeSetSkipsFilterMetaKeys(t *testing.T) {
	doc := mustBSON(t, bson.M{"filter": bson.M{"status": "open"}, "status": "closed"})
	got := normalizeSet(doc)
	set := got["$set"].(bson.M)
	if _, ok := set["filter"]; ok {
		t.Fatal("filter must not leak into $set")
	}
	if _, ok := set["status"]; !ok {
		t.Fatal("expected status field wrapped into $set")
	}
}

func TestSingleObjectIDRecognizesIDFilter(t *testing.T) {
	id := bson.NewObjectID()
	filter := mustBSON(t, bson.M{"_id": id})
	got, ok := singleObjectID(filter)
	if !ok || got != id {
		t.Fatalf("expected to recognize single _id filter, got %v ok=%v", got, ok)
	}
}

func TestSingleObjectIDRejectsNonIDFilter(t *testing.T) {
	filter := mustBSON(t, bson.M{"status": "open"})
	_, ok := singleObjectID(filter)
	if ok {
		t.Fatal("expected filter without _id to be rejected")
	}
}
