package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// handleDelete implements `delete`: find all documents matching the
// filter, delete each individually by _id (so partial failures are
// observable), and append a history record with the pre-image for every
// successful delete unless skipVersion suppresses it.
func (o *Orchestrator) handleDelete(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		Filter bson.Raw `bson:"filter"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || len(body.Filter) == 0 {
		return errorDoc("missing filter"), 0
	}

	coll := o.collectionFor(env)
	cur, err := coll.Find(ctx, body.Filter)
	if err != nil {
		return errorDoc("unable to resolve matching documents: " + err.Error()), 0
	}
	var preImages []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		preImages = append(preImages, doc)
	}
	cur.Close(ctx)

	var success, failure []bson.ObjectID
	var historyEntries []bson.M
	writes := 0
	for _, doc := range preImages {
		idVal, err := doc.LookupErr("_id")
		if err != nil {
			continue
		}
		var id bson.ObjectID
		if idVal.Unmarshal(&id) != nil {
			continue
		}

		res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil || res.DeletedCount == 0 {
			failure = append(failure, id)
			continue
		}
		success = append(success, id)

		if o.cache != nil && o.cache.Enabled() {
			o.cache.Invalidate(ctx, env.Database, env.Collection, id.Hex())
		}

		if env.SkipVersion {
			continue
		}
		rec := newHistoryRecord(env.Database, env.Collection, "delete", doc, env.Metadata, env.Application)
		historyID, err := o.insertHistory(ctx, rec)
		if err != nil {
			continue
		}
		writes++
		historyEntries = append(historyEntries, bson.M{
			"_id":        historyID,
			"database":   o.cfg.VersionHistory.Database,
			"collection": o.cfg.VersionHistory.Collection,
			"entity":     id,
		})
	}

	if success == nil {
		success = []bson.ObjectID{}
	}
	if failure == nil {
		failure = []bson.ObjectID{}
	}
	if historyEntries == nil {
		historyEntries = []bson.M{}
	}
	return bson.M{"success": success, "failure": failure, "history": historyEntries}, writes
}
