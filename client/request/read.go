package request

import "go.mongodb.org/mongo-driver/v2/bson"

// Retrieve carries a filter; the orchestrator performs a find-one when
// the filter's "_id" is an object id, otherwise a find-many.
type Retrieve struct {
	Envelope
	Filter any
}

// MarshalBSON implements Request.
func (r Retrieve) MarshalBSON() ([]byte, error) {
	r.Envelope.Action = ActionRetrieve
	return marshalRequest(r.Envelope, r.Filter)
}

// Count carries a filter to count matching documents.
type Count struct {
	Envelope
	Filter any
}

// MarshalBSON implements Request.
func (c Count) MarshalBSON() ([]byte, error) {
	c.Envelope.Action = ActionCount
	return marshalRequest(c.Envelope, c.Filter)
}

// Distinct carries a filter plus the field name to collect distinct
// values for.
type Distinct struct {
	Envelope
	Filter any
	Field  string
}

// MarshalBSON implements Request.
func (d Distinct) MarshalBSON() ([]byte, error) {
	d.Envelope.Action = ActionDistinct
	filterRaw, err := marshalToRaw(d.Filter)
	if err != nil {
		return nil, err
	}
	payload := bson.M{"filter": filterRaw, "field": d.Field}
	return marshalRequest(d.Envelope, payload)
}

// Pipeline carries an ordered list of aggregation stages.
type Pipeline struct {
	Envelope
	Stages []any
}

// MarshalBSON implements Request.
func (p Pipeline) MarshalBSON() ([]byte, error) {
	p.Envelope.Action = ActionPipeline
	payload := bson.M{"specification": p.Stages}
	return marshalRequest(p.Envelope, payload)
}
