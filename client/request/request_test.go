package request

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCreateMarshalsEnvelopeAndDocument(t *testing.T) {
	req := Create{
		Envelope: Envelope{Database: "app", Collection: "widgets", CorrelationID: "abc"},
		Document: bson.M{"_id": NewObjectID(), "name": "widget"},
	}

	data, err := req.MarshalBSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out bson.M
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["action"] != string(ActionCreate) {
		t.Fatalf("expected action create, got %v", out["action"])
	}
	if out["database"] != "app" {
		t.Fatalf("expected database app, got %v", out["database"])
	}
	if out["correlationId"] != "abc" {
		t.Fatalf("expected correlationId abc, got %v", out["correlationId"])
	}
	doc, ok := out["document"].(bson.M)
	if !ok {
		t.Fatalf("expected document sub-object, got %T", out["document"])
	}
	if doc["name"] != "widget" {
		t.Fatalf("expected name widget, got %v", doc["name"])
	}
}

func TestMergeForIdRewritesIDKey(t *testing.T) {
	id := NewObjectID()
	req := MergeForId{
		Envelope: Envelope{Database: "app", Collection: "widgets"},
		ID:       id,
		Patch:    bson.M{"name": "renamed"},
	}

	data, err := req.MarshalBSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out bson.M
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc, ok := out["document"].(bson.M)
	if !ok {
		t.Fatalf("expected document sub-object, got %T", out["document"])
	}
	if doc["_id"] != id {
		t.Fatalf("expected _id %v, got %v", id, doc["_id"])
	}
	if doc["name"] != "renamed" {
		t.Fatalf("expected name renamed, got %v", doc["name"])
	}
}

func TestTransactionBuilderEmitsItemsArray(t *testing.T) {
	b := NewTransactionBuilder("app", "widgets")
	create := Create{Document: bson.M{"_id": NewObjectID(), "name": "a"}}
	if _, err := b.Add(create); err != nil {
		t.Fatalf("add: %v", err)
	}
	del := Delete{Filter: bson.M{"_id": NewObjectID()}}
	if _, err := b.Add(del); err != nil {
		t.Fatalf("add: %v", err)
	}

	req, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := req.MarshalBSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out bson.M
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["action"] != string(ActionTransaction) {
		t.Fatalf("expected action transaction, got %v", out["action"])
	}
	doc, ok := out["document"].(bson.M)
	if !ok {
		t.Fatalf("expected document sub-object, got %T", out["document"])
	}
	items, ok := doc["items"].(bson.A)
	if !ok {
		t.Fatalf("expected items array, got %T", doc["items"])
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestDistinctMarshalsField(t *testing.T) {
	req := Distinct{
		Envelope: Envelope{Database: "app", Collection: "widgets"},
		Filter:   bson.M{},
		Field:    "category",
	}
	data, err := req.MarshalBSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out bson.M
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc := out["document"].(bson.M)
	if doc["field"] != "category" {
		t.Fatalf("expected field category, got %v", doc["field"])
	}
}
