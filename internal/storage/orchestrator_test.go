package storage

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/internal/config"
)

func testOrchestrator() *Orchestrator {
	cfg := config.DefaultConfig()
	db := &DBPool{cfg: cfg}
	return New(db, cfg, nil, nil, nil, nil)
}

func TestDispatchActionRejectsMutationAgainstVersionHistory(t *testing.T) {
	o := testOrchestrator()
	for _, action := range []string{"create", "update", "delete"} {
		env := requestEnvelope{
			Action:     action,
			Database:   o.cfg.VersionHistory.Database,
			Collection: o.cfg.VersionHistory.Collection,
			Document:   mustBSON(t, bson.M{"a": 1}),
		}
		doc, writes := o.dispatchAction(context.Background(), env)
		if doc["error"] != "not modifiable" {
			t.Fatalf("action %s: expected not modifiable, got %v", action, doc)
		}
		if writes != 0 {
			t.Fatalf("action %s: expected zero history writes on rejection", action)
		}
	}
}

func TestDispatchActionRejectsUnknownAction(t *testing.T) {
	o := testOrchestrator()
	env := requestEnvelope{Action: "frobnicate", Document: mustBSON(t, bson.M{})}
	doc, _ := o.dispatchAction(context.Background(), env)
	if doc["error"] != "invalid action" {
		t.Fatalf("expected invalid action, got %v", doc)
	}
}

func TestDispatchActionRejectsInvalidContent(t *testing.T) {
	o := testOrchestrator()
	bad := ""
	for i := 0; i < 20; i++ {
		bad += "!@#$"
	}
	env := requestEnvelope{
		Action:     "create",
		Database:   "appdb",
		Collection: "widgets",
		Document:   mustBSON(t, bson.M{"name": bad}),
	}
	doc, _ := o.dispatchAction(context.Background(), env)
	if doc["error"] != "invalid content" {
		t.Fatalf("expected invalid content, got %v", doc)
	}
}

func TestResolveWriteConcernDefaultsWhenAbsent(t *testing.T) {
	o := testOrchestrator()
	wc := o.resolveWriteConcern(nil)
	if wc != o.db.DefaultWriteConcern {
		t.Fatal("expected default write concern when options are absent")
	}
}

func TestResolveWriteConcernParsesOptions(t *testing.T) {
	o := testOrchestrator()
	raw := mustBSON(t, bson.M{
		"writeConcern": bson.M{"w": "majority", "j": true, "wtimeout": int32(200)},
	})
	wc := o.resolveWriteConcern(raw)
	if wc.W != "majority" {
		t.Fatalf("expected w=majority, got %v", wc.W)
	}
	if wc.Journal == nil || !*wc.Journal {
		t.Fatal("expected journal=true")
	}
}

func TestResolveReadPreferenceDefaultsToPrimary(t *testing.T) {
	o := testOrchestrator()
	rp := o.resolveReadPreference(nil)
	if rp.Mode().String() != "primary" {
		t.Fatalf("expected primary, got %v", rp.Mode())
	}
}

func TestResolveReadPreferenceParsesMode(t *testing.T) {
	o := testOrchestrator()
	raw := mustBSON(t, bson.M{"readPreference": "secondaryPreferred"})
	rp := o.resolveReadPreference(raw)
	if rp.Mode().String() != "secondaryPreferred" {
		t.Fatalf("expected secondaryPreferred, got %v", rp.Mode())
	}
}

func TestResolveReadConcernParsesLevel(t *testing.T) {
	o := testOrchestrator()
	raw := mustBSON(t, bson.M{"readConcern": "majority"})
	rc := o.resolveReadConcern(raw)
	if rc == nil {
		t.Fatal("expected non-nil read concern")
	}
}

func mustBSON(t *testing.T, v any) bson.Raw {
	t.Helper()
	data, err := bson.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bson.Raw(data)
}
