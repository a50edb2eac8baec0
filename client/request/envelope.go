// Package request defines the typed request/response schema family: a
// shared envelope (database, collection, application, options, metadata,
// correlationId, skipVersion, skipMetric, action) plus one payload shape
// per action. Request schemas marshal to BSON and response schemas
// unmarshal from it, following a structural convention: a Go field named ID of object-id type is
// written as the wire key "_id", and vice versa — mirroring the common
// id/_id rename every mongo-driver-based schema in the pack performs by
// hand via bson struct tags.
package request

import (
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/client/apierr"
)

// Action enumerates the fixed set of operation names recognized on the
// wire.
type Action string

const (
	ActionCreate           Action = "create"
	ActionCreateTimeseries Action = "createTimeseries"
	ActionRetrieve         Action = "retrieve"
	ActionUpdate           Action = "update"
	ActionDelete           Action = "delete"
	ActionCount            Action = "count"
	ActionDistinct         Action = "distinct"
	ActionIndex            Action = "index"
	ActionDropIndex        Action = "dropIndex"
	ActionBulk             Action = "bulk"
	ActionPipeline         Action = "pipeline"
	ActionTransaction      Action = "transaction"
	ActionCreateCollection Action = "createCollection"
	ActionRenameCollection Action = "renameCollection"
	ActionDropCollection   Action = "dropCollection"
)

// Envelope carries the fields common to every request action.
type Envelope struct {
	Action        Action   `bson:"action"`
	Database      string   `bson:"database,omitempty"`
	Collection    string   `bson:"collection,omitempty"`
	Application   string   `bson:"application,omitempty"`
	CorrelationID string   `bson:"correlationId,omitempty"`
	SkipVersion   bool     `bson:"skipVersion,omitempty"`
	SkipMetric    bool     `bson:"skipMetric,omitempty"`
	Metadata      bson.Raw `bson:"metadata,omitempty"`
	Options       bson.Raw `bson:"options,omitempty"`
}

// Request is the contract every typed schema satisfies: marshal to the
// wire envelope-plus-payload document. Decoding a request document back
// into a schema is not part of it.
type Request interface {
	MarshalBSON() ([]byte, error)
}

// buildEnvelopeDoc assembles the outer request document: the shared
// envelope fields plus a "document" sub-object holding the action payload.
// A caller that leaves CorrelationID unset gets a fresh uuid so every
// request is traceable through server logs and the audit ledger even
// when the caller never bothered to set one.
func buildEnvelopeDoc(env Envelope, payload any) (bson.M, error) {
	payloadDoc, err := bson.Marshal(payload)
	if err != nil {
		return nil, apierr.Invalid("marshal payload: " + err.Error())
	}
	var payloadM bson.M
	if err := bson.Unmarshal(payloadDoc, &payloadM); err != nil {
		return nil, apierr.Invalid("remarshal payload: " + err.Error())
	}

	correlationID := env.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	doc := bson.M{
		"action": string(env.Action),
	}
	if env.Database != "" {
		doc["database"] = env.Database
	}
	if env.Collection != "" {
		doc["collection"] = env.Collection
	}
	if env.Application != "" {
		doc["application"] = env.Application
	}
	doc["correlationId"] = correlationID
	if env.SkipVersion {
		doc["skipVersion"] = true
	}
	if env.SkipMetric {
		doc["skipMetric"] = true
	}
	if len(env.Metadata) > 0 {
		doc["metadata"] = env.Metadata
	}
	if len(env.Options) > 0 {
		doc["options"] = env.Options
	}
	doc["document"] = payloadM
	return doc, nil
}

func marshalRequest(env Envelope, payload any) ([]byte, error) {
	doc, err := buildEnvelopeDoc(env, payload)
	if err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}
