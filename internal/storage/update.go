package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// handleUpdate implements `update`. Two logical paths: by identifier
// (document carries its own _id) or by filter (document carries `filter`
// plus one of `replace`/`update`). Both converge on re-reading the
// post-image and writing a version-history record, unless skipVersion
// suppresses it.
func (o *Orchestrator) handleUpdate(ctx context.Context, env requestEnvelope) (bson.M, int) {
	if idVal, err := env.Document.LookupErr("_id"); err == nil {
		var id bson.ObjectID
		if idVal.Unmarshal(&id) == nil {
			return o.updateByID(ctx, env, id, normalizeSet(env.Document))
		}
	}
	return o.updateByFilter(ctx, env)
}

func (o *Orchestrator) updateByID(ctx context.Context, env requestEnvelope, id bson.ObjectID, update bson.M) (bson.M, int) {
	coll := o.collectionFor(env)
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return errorDoc("unable to update document: " + err.Error()), 0
	}
	return o.finishUpdate(ctx, env, coll, []bson.ObjectID{id})
}

// updateByFilter handles the filter-driven path: replace (full document
// substitution) or update ($set-normalized), against one or many matching
// documents.
func (o *Orchestrator) updateByFilter(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		Filter  bson.Raw `bson:"filter"`
		Replace bson.Raw `bson:"replace"`
		Update  bson.Raw `bson:"update"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || len(body.Filter) == 0 {
		return errorDoc("missing filter"), 0
	}

	coll := o.collectionFor(env)

	if filterID, ok := singleObjectID(body.Filter); ok {
		if len(body.Replace) > 0 {
			if _, err := coll.ReplaceOne(ctx, body.Filter, body.Replace); err != nil {
				return errorDoc("unable to replace document: " + err.Error()), 0
			}
		} else if len(body.Update) > 0 {
			if _, err := coll.UpdateOne(ctx, body.Filter, normalizeSet(body.Update)); err != nil {
				return errorDoc("unable to update document: " + err.Error()), 0
			}
		} else {
			return errorDoc("missing replace or update"), 0
		}
		return o.finishUpdate(ctx, env, coll, []bson.ObjectID{filterID})
	}

	// Multi-document path: collect matching ids before the update so
	// history can be written per id afterward.
	ids, err := matchingIDs(ctx, coll, body.Filter)
	if err != nil {
		return errorDoc("unable to resolve matching documents: " + err.Error()), 0
	}

	if len(body.Replace) > 0 {
		return errorDoc("replace requires a unique filter"), 0
	}
	if len(body.Update) == 0 {
		return errorDoc("missing replace or update"), 0
	}
	if _, err := coll.UpdateMany(ctx, body.Filter, normalizeSet(body.Update)); err != nil {
		return errorDoc("unable to update documents: " + err.Error()), 0
	}
	return o.finishUpdate(ctx, env, coll, ids)
}

// finishUpdate re-reads each updated document, appends version-history
// records (action "update"), and assembles the response. With exactly one
// id, the response carries a single post-image; skipVersion suppresses
// history entirely.
func (o *Orchestrator) finishUpdate(ctx context.Context, env requestEnvelope, coll *mongo.Collection, ids []bson.ObjectID) (bson.M, int) {
	if o.cache != nil && o.cache.Enabled() {
		for _, id := range ids {
			o.cache.Invalidate(ctx, env.Database, env.Collection, id.Hex())
		}
	}

	if env.SkipVersion {
		return bson.M{"skipVersion": true}, 0
	}

	var lastDoc bson.Raw
	var historyEntries []bson.M
	writes := 0
	for _, id := range ids {
		res := coll.FindOne(ctx, bson.M{"_id": id})
		raw, err := res.Raw()
		if err != nil {
			continue
		}
		lastDoc = raw

		rec := newHistoryRecord(env.Database, env.Collection, "update", raw, env.Metadata, env.Application)
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

	if len(ids) == 1 {
		var history any
		if len(historyEntries) == 1 {
			history = historyEntries[0]
		}
		return bson.M{"document": lastDoc, "history": history}, writes
	}
	return bson.M{"history": historyEntries}, writes
}

// normalizeSet wraps any top-level keys other than _id, filter, replace,
// update, $set, $unset into a synthesized $set clause, merges the contents
// of $set into it, and preserves $unset verbatim. The _id, filter, replace
// and update keys are dropped.
func normalizeSet(doc bson.Raw) bson.M {
	elems, err := doc.Elements()
	if err != nil {
		return bson.M{}
	}

	set := bson.M{}
	result := bson.M{}
	for _, elem := range elems {
		key := elem.Key()
		switch key {
		case "_id", "filter", "replace", "update":
			continue
		case "$set":
			var sub bson.M
			if elem.Value().Unmarshal(&sub) == nil {
				for k, v := range sub {
					set[k] = v
				}
			}
		case "$unset":
			result["$unset"] = elem.Value()
		default:
			set[key] = elem.Value()
		}
	}
	if len(set) > 0 {
		result["$set"] = set
	}
	return result
}

// singleObjectID reports whether filter is exactly `{_id: <object-id>}` (or
// contains an _id key of object-id type), returning it when so.
func singleObjectID(filter bson.Raw) (bson.ObjectID, bool) {
	idVal, err := filter.LookupErr("_id")
	if err != nil {
		return bson.ObjectID{}, false
	}
	var id bson.ObjectID
	if idVal.Unmarshal(&id) != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}

// matchingIDs reads the _id of every document matching filter, before a
// multi-document update is applied.
func matchingIDs(ctx context.Context, coll *mongo.Collection, filter bson.Raw) ([]bson.ObjectID, error) {
	cur, err := coll.Find(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []bson.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID bson.ObjectID `bson:"_id"`
		}
		if cur.Decode(&row) == nil {
			ids = append(ids, row.ID)
		}
	}
	return ids, cur.Err()
}
