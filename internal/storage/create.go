package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// handleCreate implements the `create` action: reject if the document has
// no identifier, insert with resolved write concern, then append a
// version-history record unless skipVersion suppresses it.
func (o *Orchestrator) handleCreate(ctx context.Context, env requestEnvelope) (bson.M, int) {
	idVal, err := env.Document.LookupErr("_id")
	if err != nil {
		return errorDoc("missing identifier"), 0
	}
	var id bson.ObjectID
	if err := idVal.Unmarshal(&id); err != nil {
		return errorDoc("missing identifier"), 0
	}

	coll := o.collectionFor(env)
	if _, err := coll.InsertOne(ctx, env.Document); err != nil {
		return errorDoc("unable to create document: " + err.Error()), 0
	}

	if env.SkipVersion {
		return bson.M{"_id": id, "skipVersion": true}, 0
	}

	rec := newHistoryRecord(env.Database, env.Collection, string(env.Action), env.Document, env.Metadata, env.Application)
	historyID, err := o.insertHistory(ctx, rec)
	if err != nil {
		return errorDoc("unable to create version: " + err.Error()), 0
	}

	return bson.M{
		"_id":        historyID,
		"database":   o.cfg.VersionHistory.Database,
		"collection": o.cfg.VersionHistory.Collection,
		"entity":     id,
	}, 1
}

// handleCreateTimeseries implements `createTimeseries`: the identifier is
// optional (the database assigns one if absent), and no version-history
// entry is produced.
func (o *Orchestrator) handleCreateTimeseries(ctx context.Context, env requestEnvelope) (bson.M, int) {
	coll := o.collectionFor(env)
	res, err := coll.InsertOne(ctx, env.Document)
	if err != nil {
		return errorDoc("unable to create timeseries document: " + err.Error()), 0
	}

	var id any
	if idVal, err := env.Document.LookupErr("_id"); err == nil {
		var oid bson.ObjectID
		if idVal.Unmarshal(&oid) == nil {
			id = oid
		}
	}
	if id == nil {
		id = res.InsertedID
	}

	return bson.M{
		"database":   env.Database,
		"collection": env.Collection,
		"_id":        id,
	}, 0
}

// collectionFor returns the target collection handle, applying the
// request's write concern (explicit options.writeConcern, else the pool
// default).
func (o *Orchestrator) collectionFor(env requestEnvelope) *mongo.Collection {
	wc := o.resolveWriteConcern(env.Options)
	opts := options.Collection().SetWriteConcern(wc)
	return o.db.Database(env.Database).Collection(env.Collection, opts)
}
