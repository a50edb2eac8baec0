package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// HistoryRecord is the version-history entry written for every mutating
// action, unless the request set skipVersion.
type HistoryRecord struct {
	ID         bson.ObjectID `bson:"_id"`
	Database   string        `bson:"database"`
	Collection string        `bson:"collection"`
	Action     string        `bson:"action"`
	Entity     bson.Raw      `bson:"entity"`
	Created    time.Time     `bson:"created"`
	Metadata   bson.Raw      `bson:"metadata,omitempty"`
}

// newHistoryRecord builds a fresh version-history record for entity under
// the given (database, collection, action), stamping metadata.application
// from the request envelope when set (matching storage.cpp's practice of
// carrying the calling application onto history rows for audit trails).
func newHistoryRecord(database, collection, action string, entity bson.Raw, metadata bson.Raw, application string) HistoryRecord {
	meta := metadata
	if application != "" {
		meta = stampApplication(metadata, application)
	}
	return HistoryRecord{
		ID:         bson.NewObjectID(),
		Database:   database,
		Collection: collection,
		Action:     action,
		Entity:     entity,
		Created:    time.Now().UTC(),
		Metadata:   meta,
	}
}

func stampApplication(metadata bson.Raw, application string) bson.Raw {
	m := bson.M{}
	if len(metadata) > 0 {
		_ = bson.Unmarshal(metadata, &m)
	}
	m["application"] = application
	data, err := bson.Marshal(m)
	if err != nil {
		return metadata
	}
	return bson.Raw(data)
}

// insertHistory writes one history record and returns the record's id for
// response assembly. It does not look at skipVersion; callers skip the
// call when skipVersion is set.
func (o *Orchestrator) insertHistory(ctx context.Context, rec HistoryRecord) (bson.ObjectID, error) {
	_, err := o.db.HistoryCollection().InsertOne(ctx, rec)
	if err != nil {
		return bson.ObjectID{}, err
	}
	return rec.ID, nil
}

// insertHistoryMany writes a batch of history records via bulk write, used
// by the bulk action.
func (o *Orchestrator) insertHistoryMany(ctx context.Context, recs []HistoryRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	docs := make([]any, len(recs))
	for i, r := range recs {
		docs[i] = r
	}
	res, err := o.db.HistoryCollection().InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}
