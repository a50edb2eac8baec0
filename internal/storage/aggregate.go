package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// handleCount implements `count`: the document is the filter itself.
func (o *Orchestrator) handleCount(ctx context.Context, env requestEnvelope) (bson.M, int) {
	coll := o.readCollectionFor(env)
	n, err := coll.CountDocuments(ctx, env.Document, countOptions(env.Options))
	if err != nil {
		return errorDoc("unable to count documents: " + err.Error()), 0
	}
	return bson.M{"count": n}, 0
}

// handleDistinct implements `distinct`: requires a `field` key; the
// optional `filter` sub-document selects the documents considered.
func (o *Orchestrator) handleDistinct(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		Field  string   `bson:"field"`
		Filter bson.Raw `bson:"filter"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || body.Field == "" {
		return errorDoc("missing field"), 0
	}

	var filter any = bson.D{}
	if len(body.Filter) > 0 {
		filter = body.Filter
	}
	coll := o.readCollectionFor(env)
	res := coll.Distinct(ctx, body.Field, filter)
	var values []any
	if err := res.Decode(&values); err != nil {
		return errorDoc("unable to compute distinct values: " + err.Error()), 0
	}
	return bson.M{"results": []bson.M{{"values": values}}}, 0
}

// handlePipeline implements `pipeline`: requires a `specification` array
// of aggregation stages, applied in order.
func (o *Orchestrator) handlePipeline(ctx context.Context, env requestEnvelope) (bson.M, int) {
	var body struct {
		Specification []bson.Raw `bson:"specification"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || len(body.Specification) == 0 {
		return errorDoc("no specification"), 0
	}

	stages := make(mongoPipeline, len(body.Specification))
	for i, s := range body.Specification {
		stages[i] = s
	}

	coll := o.readCollectionFor(env)
	cur, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return errorDoc("unable to execute pipeline: " + err.Error()), 0
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

// mongoPipeline satisfies the driver's variadic-stage Aggregate signature
// as a plain slice of raw stage documents.
type mongoPipeline []any

// countOptions maps the count subset: collation, hint, limit, skip.
func countOptions(optionsDoc bson.Raw) *options.CountOptionsBuilder {
	opts := options.Count()
	if len(optionsDoc) == 0 {
		return opts
	}

	var m struct {
		Collation *options.Collation `bson:"collation"`
		Hint      any                `bson:"hint"`
		Limit     *int64             `bson:"limit"`
		Skip      *int64             `bson:"skip"`
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
	if m.Limit != nil {
		opts.SetLimit(*m.Limit)
	}
	if m.Skip != nil {
		opts.SetSkip(*m.Skip)
	}
	return opts
}
