package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleTransactionRequiresItems(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Document: mustBSON(t, bson.M{"items": []bson.M{}})}
	doc, writes := o.handleTransaction(context.Background(), env)
	if doc["error"] != "missing items" {
		t.Fatalf("expected missing items, got %v", doc)
	}
	if writes != 0 {
		t.Fatal("expected zero writes when the transaction request is rejected")
	}
}

func TestMongoItemErrorCarriesMessage(t *testing.T) {
	err := mongoItemError{msg: "not modifiable"}
	if err.Error() != "not modifiable" {
		t.Fatalf("unexpected error message: %v", err.Error())
	}
}
