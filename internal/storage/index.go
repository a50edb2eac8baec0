package storage

import (
	"bytes"
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// handleIndex implements `index`: accepts a key-spec document plus a rich
// options map. Fields not directly consumed (name, unique, sparse,
// background, hidden, TTL, partial filter, weights, language settings,
// 2d params, collation, version) are forwarded transparently to the
// index-creation call via bson passthrough.
func (o *Orchestrator) handleIndex(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		Spec bson.Raw `bson:"spec"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || len(body.Spec) == 0 {
		return errorDoc("missing index specification"), 0
	}

	idxOpts := options.Index()
	if len(env.Options) > 0 {
		var m struct {
			Name                    *string            `bson:"name"`
			Unique                  *bool               `bson:"unique"`
			Sparse                  *bool               `bson:"sparse"`
			Background              *bool               `bson:"background"`
			Hidden                  *bool               `bson:"hidden"`
			ExpireAfterSeconds      *int32              `bson:"expireAfterSeconds"`
			PartialFilterExpression bson.Raw            `bson:"partialFilterExpression"`
			Weights                 bson.Raw            `bson:"weights"`
			DefaultLanguage         *string             `bson:"defaultLanguage"`
			LanguageOverride        *string             `bson:"languageOverride"`
			TwoDSphereVersion       *int32              `bson:"2dsphereIndexVersion"`
			Bits                    *int32              `bson:"bits"`
			Min                     *float64            `bson:"min"`
			Max                     *float64            `bson:"max"`
			Collation               *options.Collation  `bson:"collation"`
			Version                 *int32              `bson:"version"`
		}
		if bson.Unmarshal(env.Options, &m) == nil {
			if m.Name != nil {
				idxOpts.SetName(*m.Name)
			}
			if m.Unique != nil {
				idxOpts.SetUnique(*m.Unique)
			}
			if m.Sparse != nil {
				idxOpts.SetSparse(*m.Sparse)
			}
			if m.Hidden != nil {
				idxOpts.SetHidden(*m.Hidden)
			}
			if m.ExpireAfterSeconds != nil {
				idxOpts.SetExpireAfterSeconds(*m.ExpireAfterSeconds)
			}
			if len(m.PartialFilterExpression) > 0 {
				idxOpts.SetPartialFilterExpression(m.PartialFilterExpression)
			}
			if len(m.Weights) > 0 {
				idxOpts.SetWeights(m.Weights)
			}
			if m.DefaultLanguage != nil {
				idxOpts.SetDefaultLanguage(*m.DefaultLanguage)
			}
			if m.LanguageOverride != nil {
				idxOpts.SetLanguageOverride(*m.LanguageOverride)
			}
			if m.TwoDSphereVersion != nil {
				idxOpts.SetSphereVersion(*m.TwoDSphereVersion)
			}
			if m.Bits != nil {
				idxOpts.SetBits(*m.Bits)
			}
			if m.Min != nil {
				idxOpts.SetMin(*m.Min)
			}
			if m.Max != nil {
				idxOpts.SetMax(*m.Max)
			}
			if m.Collation != nil {
				idxOpts.SetCollation(m.Collation)
			}
			if m.Version != nil {
				idxOpts.SetVersion(*m.Version)
			}
		}
	}

	coll := o.collectionFor(env)
	name, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: body.Spec, Options: idxOpts})
	if err != nil {
		return errorDoc("unable to create index: " + err.Error()), 0
	}
	return bson.M{"name": name}, 0
}

// handleDropIndex implements `dropIndex`: by name (options.name) or by
// specification document.
func (o *Orchestrator) handleDropIndex(ctx context.Context, env requestEnvelope) (bson.M, int) {
	coll := o.collectionFor(env)

	if len(env.Options) > 0 {
		var m struct {
			Name *string `bson:"name"`
		}
		if bson.Unmarshal(env.Options, &m) == nil && m.Name != nil && *m.Name != "" {
			if _, err := coll.Indexes().DropOne(ctx, *m.Name); err != nil {
				return errorDoc("unable to drop index: " + err.Error()), 0
			}
			return bson.M{"dropIndex": true}, 0
		}
	}

	var body struct {
		Spec bson.Raw `bson:"spec"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || len(body.Spec) == 0 {
		return errorDoc("missing index specification"), 0
	}

	name, err := indexNameForSpec(ctx, coll, body.Spec)
	if err != nil {
		return errorDoc("unable to resolve index: " + err.Error()), 0
	}
	if name == "" {
		return errorDoc("no matching index"), 0
	}
	if _, err := coll.Indexes().DropOne(ctx, name); err != nil {
		return errorDoc("unable to drop index: " + err.Error()), 0
	}
	return bson.M{"dropIndex": true}, 0
}

// indexNameForSpec finds the name of the existing index whose key document
// matches spec, by listing the collection's indexes (the driver only drops
// by name).
func indexNameForSpec(ctx context.Context, coll *mongo.Collection, spec bson.Raw) (string, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return "", err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var idx struct {
			Name string   `bson:"name"`
			Key  bson.Raw `bson:"key"`
		}
		if cur.Decode(&idx) != nil {
			continue
		}
		if bytes.Equal(idx.Key, spec) {
			return idx.Name, nil
		}
	}
	return "", cur.Err()
}
