package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// handleBulk implements `bulk`: inserts all documents in `insert` via one
// bulk write, deletes everything matched by each filter in `remove` via a
// second bulk write, and (unless skipVersion) writes a third bulk write of
// history records — one per insert, one per matched delete as pre-image.
func (o *Orchestrator) handleBulk(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		Insert []bson.Raw `bson:"insert"`
		Remove []bson.Raw `bson:"remove"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil {
		return errorDoc("malformed bulk request"), 0
	}

	coll := o.collectionFor(env)
	var created int64
	var historyRecs []HistoryRecord

	if len(body.Insert) > 0 {
		docs := make([]any, len(body.Insert))
		for i, d := range body.Insert {
			docs[i] = d
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return errorDoc("unable to bulk create: " + err.Error()), 0
		}
		created = int64(len(res.InsertedIDs))

		if !env.SkipVersion {
			for _, d := range body.Insert {
				historyRecs = append(historyRecs, newHistoryRecord(env.Database, env.Collection, "create", d, env.Metadata, env.Application))
			}
		}
	}

	var removed int64
	if len(body.Remove) > 0 {
		preImages, n, err := o.bulkDelete(ctx, coll, body.Remove)
		if err != nil {
			return errorDoc("unable to bulk delete: " + err.Error()), 0
		}
		removed = n

		if !env.SkipVersion {
			for _, d := range preImages {
				historyRecs = append(historyRecs, newHistoryRecord(env.Database, env.Collection, "delete", d, env.Metadata, env.Application))
			}
		}
	}

	historyCount, err := o.insertHistoryMany(ctx, historyRecs)
	if err != nil {
		return errorDoc("unable to write bulk history: " + err.Error()), 0
	}

	return bson.M{"create": created, "history": historyCount, "remove": removed}, int(historyCount)
}

// bulkDelete reads the documents matched by each filter in removeFilters,
// then deletes them all with one bulk write of delete-many models,
// returning the pre-images read and the total deleted count.
func (o *Orchestrator) bulkDelete(ctx context.Context, coll *mongo.Collection, removeFilters []bson.Raw) ([]bson.Raw, int64, error) {
	var preImages []bson.Raw
	models := make([]mongo.WriteModel, 0, len(removeFilters))
	for _, filter := range removeFilters {
		cur, err := coll.Find(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
		var matched []bson.Raw
		for cur.Next(ctx) {
			doc := make(bson.Raw, len(cur.Current))
			copy(doc, cur.Current)
			matched = append(matched, doc)
		}
		cur.Close(ctx)

		preImages = append(preImages, matched...)
		models = append(models, mongo.NewDeleteManyModel().SetFilter(filter))
	}
	res, err := coll.BulkWrite(ctx, models)
	if err != nil {
		return nil, 0, err
	}
	return preImages, res.DeletedCount, nil
}
