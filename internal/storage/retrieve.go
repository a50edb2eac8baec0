package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// handleRetrieve implements `retrieve`: a query document with an _id of
// object-id type is a find-one; anything else is a find-many. By-id hits
// with a primary read preference consult the read-through cache first and
// populate it on a miss.
func (o *Orchestrator) handleRetrieve(ctx context.Context, env requestEnvelope) (bson.M, int) {
	coll := o.readCollectionFor(env)

	idVal, err := env.Document.LookupErr("_id")
	if err == nil {
		var id bson.ObjectID
		if idVal.Unmarshal(&id) == nil {
			return o.retrieveOne(ctx, env, coll, id)
		}
	}

	findOpts := retrieveFindOptions(env.Options)
	cur, err := coll.Find(ctx, env.Document, findOpts)
	if err != nil {
		return errorDoc("unable to retrieve documents: " + err.Error()), 0
	}
	defer cur.Close(ctx)

	var results []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		results = append(results, doc)
	}
	if results == nil {
		results = []bson.Raw{}
	}
	return bson.M{"results": results}, 0
}

func (o *Orchestrator) retrieveOne(ctx context.Context, env requestEnvelope, coll *mongo.Collection, id bson.ObjectID) (bson.M, int) {
	useCache := o.cache != nil && o.cache.Enabled() &&
		o.resolveReadPreference(env.Options).Mode() == readpref.PrimaryMode
	if useCache {
		if cached, err := o.cache.Get(ctx, env.Database, env.Collection, id.Hex()); err == nil {
			return bson.M{"result": bson.Raw(cached)}, 0
		}
	}

	findOneOpts := retrieveFindOneOptions(env.Options)
	res := coll.FindOne(ctx, bson.M{"_id": id}, findOneOpts)
	raw, err := res.Raw()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return errorDoc("not found"), 0
		}
		return errorDoc("unable to retrieve document: " + err.Error()), 0
	}

	if useCache {
		o.cache.Set(ctx, env.Database, env.Collection, id.Hex(), []byte(raw))
	}
	return bson.M{"result": raw}, 0
}

// readCollectionFor returns the target collection applying the request's
// read concern and read preference, falling back to primary/default when
// absent.
func (o *Orchestrator) readCollectionFor(env requestEnvelope) *mongo.Collection {
	opts := options.Collection().SetReadPreference(o.resolveReadPreference(env.Options))
	if rc := o.resolveReadConcern(env.Options); rc != nil {
		opts.SetReadConcern(rc)
	}
	return o.db.Database(env.Database).Collection(env.Collection, opts)
}

// retrieveFindOptions maps the subset of options.* recognized for find-many:
// collation, hint, projection, sort, skip, limit, partial, comment. A
// maxTime key is decoded but not applied, and max/min/returnKey/
// showRecordId are not read for find-many; only the by-id find-one path
// maps those four.
func retrieveFindOptions(optionsDoc bson.Raw) *options.FindOptionsBuilder {
	opts := options.Find()
	if len(optionsDoc) == 0 {
		return opts
	}

	var m struct {
		Collation  *options.Collation `bson:"collation"`
		Hint       any                `bson:"hint"`
		Projection bson.Raw           `bson:"projection"`
		Sort       bson.Raw           `bson:"sort"`
		Skip       *int64             `bson:"skip"`
		Limit      *int64             `bson:"limit"`
		MaxTimeMs  *int64             `bson:"maxTime"`
		Partial    *bool              `bson:"partial"`
		Comment    *string            `bson:"comment"`
	}
	if bson.Unmarshal(optionsDoc, &m) != nil {
		return opts
	}

	if m.Collation != nil {
		opts.SetCollation(m.Collation)
	}
	if m.Hint != nil {
		opts.SetHint(m.Hint)
	}
	if len(m.Projection) > 0 {
		opts.SetProjection(m.Projection)
	}
	if len(m.Sort) > 0 {
		opts.SetSort(m.Sort)
	}
	if m.Skip != nil {
		opts.SetSkip(*m.Skip)
	}
	if m.Limit != nil {
		opts.SetLimit(*m.Limit)
	}
	if m.Partial != nil {
		opts.SetAllowPartialResults(*m.Partial)
	}
	if m.Comment != nil {
		opts.SetComment(*m.Comment)
	}
	return opts
}

// retrieveFindOneOptions maps the by-id find-one subset: collation, hint,
// projection, max, min, returnKey, showRecordId, comment.
func retrieveFindOneOptions(optionsDoc bson.Raw) *options.FindOneOptionsBuilder {
	opts := options.FindOne()
	if len(optionsDoc) == 0 {
		return opts
	}

	var m struct {
		Collation    *options.Collation `bson:"collation"`
		Hint         any                `bson:"hint"`
		Projection   bson.Raw           `bson:"projection"`
		Max          bson.Raw           `bson:"max"`
		Min          bson.Raw           `bson:"min"`
		ReturnKey    *bool              `bson:"returnKey"`
		ShowRecordID *bool              `bson:"showRecordId"`
		Comment      *string            `bson:"comment"`
	}
	if bson.Unmarshal(optionsDoc, &m) != nil {
		return opts
	}

	if m.Collation != nil {
		opts.SetCollation(m.Collation)
	}
	if m.Hint != nil {
		opts.SetHint(m.Hint)
	}
	if len(m.Projection) > 0 {
		opts.SetProjection(m.Projection)
	}
	if len(m.Max) > 0 {
		opts.SetMax(m.Max)
	}
	if len(m.Min) > 0 {
		opts.SetMin(m.Min)
	}
	if m.ReturnKey != nil {
		opts.SetReturnKey(*m.ReturnKey)
	}
	if m.ShowRecordID != nil {
		opts.SetShowRecordID(*m.ShowRecordID)
	}
	if m.Comment != nil {
		opts.SetComment(*m.Comment)
	}
	return opts
}
