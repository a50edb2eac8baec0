package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// handleCreateCollection implements `createCollection`: idempotent, refused
// with "collection exists" if the name is already present.
func (o *Orchestrator) handleCreateCollection(ctx context.Context, env requestEnvelope) (bson.M, int) {
	db := o.db.Database(env.Database)

	names, err := db.ListCollectionNames(ctx, bson.M{"name": env.Collection})
	if err != nil {
		return errorDoc("unable to list collections: " + err.Error()), 0
	}
	if len(names) > 0 {
		return errorDoc("collection exists"), 0
	}

	opts := createCollectionOptions(env.Options)
	if err := db.CreateCollection(ctx, env.Collection, opts); err != nil {
		return errorDoc("unable to create collection: " + err.Error()), 0
	}
	return bson.M{"database": env.Database, "collection": env.Collection}, 0
}

// handleRenameCollection implements `renameCollection`: refused if the
// target name already exists. History records for the old (database,
// collection) pair are left as-is; the design defers their rewrite to an
// out-of-band background worker.
func (o *Orchestrator) handleRenameCollection(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		NewName string `bson:"newName"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || body.NewName == "" {
		return errorDoc("missing newName"), 0
	}

	db := o.db.Database(env.Database)
	names, err := db.ListCollectionNames(ctx, bson.M{"name": body.NewName})
	if err != nil {
		return errorDoc("unable to list collections: " + err.Error()), 0
	}
	if len(names) > 0 {
		return errorDoc("collection exists"), 0
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: env.Database + "." + env.Collection},
		{Key: "to", Value: env.Database + "." + body.NewName},
	}
	if err := o.db.Client().Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return errorDoc("unable to rename collection: " + err.Error()), 0
	}
	return bson.M{"database": env.Database, "collection": body.NewName}, 0
}

// handleDropCollection implements `dropCollection`. When the document's
// clearVersionHistory flag is set, every history entry referring to
// (database, collection) is first archived (when an archiver is
// configured) and then deleted, before the collection itself is dropped.
func (o *Orchestrator) handleDropCollection(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		ClearVersionHistory bool `bson:"clearVersionHistory"`
	}
	_ = bson.Unmarshal(env.Document, &body)

	if body.ClearVersionHistory {
		if o.archiver != nil {
			if err := o.archiver.SweepFor(ctx, env.Database, env.Collection); err != nil {
				return errorDoc("unable to archive version history: " + err.Error()), 0
			}
		}
		if _, err := o.db.HistoryCollection().DeleteMany(ctx, bson.M{"database": env.Database, "collection": env.Collection}); err != nil {
			return errorDoc("unable to clear version history: " + err.Error()), 0
		}
	}

	if err := o.db.Database(env.Database).Collection(env.Collection).Drop(ctx); err != nil {
		return errorDoc("unable to drop collection: " + err.Error()), 0
	}
	return bson.M{"dropCollection": true}, 0
}

// createCollectionOptions maps the subset recognized for createCollection:
// timeseries, clustered index, capped size/max, validator, validation
// action/level, storage engine, collation, change-stream pre/post images,
// expire-after-seconds.
func createCollectionOptions(optionsDoc bson.Raw) *options.CreateCollectionOptionsBuilder {
	opts := options.CreateCollection()
	if len(optionsDoc) == 0 {
		return opts
	}

	var m struct {
		TimeseriesOptions *options.TimeSeriesOptions `bson:"timeseries"`
		Capped            *bool                      `bson:"capped"`
		SizeInBytes       *int64                     `bson:"size"`
		MaxDocuments      *int64                     `bson:"max"`
		Validator         bson.Raw                   `bson:"validator"`
		ValidationAction  *string                    `bson:"validationAction"`
		ValidationLevel   *string                    `bson:"validationLevel"`
		StorageEngine     bson.Raw                   `bson:"storageEngine"`
		Collation         *options.Collation         `bson:"collation"`
		ExpireAfterSeconds *int64                    `bson:"expireAfterSeconds"`
		ChangeStreamPreAndPostImages bson.Raw        `bson:"changeStreamPreAndPostImages"`
	}
	if bson.Unmarshal(optionsDoc, &m) != nil {
		return opts
	}

	if m.TimeseriesOptions != nil {
		opts.SetTimeSeriesOptions(m.TimeseriesOptions)
	}
	if m.Capped != nil {
		opts.SetCapped(*m.Capped)
	}
	if m.SizeInBytes != nil {
		opts.SetSizeInBytes(*m.SizeInBytes)
	}
	if m.MaxDocuments != nil {
		opts.SetMaxDocuments(*m.MaxDocuments)
	}
	if len(m.Validator) > 0 {
		opts.SetValidator(m.Validator)
	}
	if m.ValidationAction != nil {
		opts.SetValidationAction(*m.ValidationAction)
	}
	if m.ValidationLevel != nil {
		opts.SetValidationLevel(*m.ValidationLevel)
	}
	if len(m.StorageEngine) > 0 {
		opts.SetStorageEngine(m.StorageEngine)
	}
	if m.Collation != nil {
		opts.SetCollation(m.Collation)
	}
	if m.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*m.ExpireAfterSeconds)
	}
	if len(m.ChangeStreamPreAndPostImages) > 0 {
		opts.SetChangeStreamPreAndPostImages(m.ChangeStreamPreAndPostImages)
	}
	return opts
}
