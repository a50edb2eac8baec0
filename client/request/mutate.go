package request

import "go.mongodb.org/mongo-driver/v2/bson"

// Replace carries a filter plus a full replacement document.
type Replace struct {
	Envelope
	Filter   any
	Document any
	Metadata any
}

// MarshalBSON implements Request.
func (r Replace) MarshalBSON() ([]byte, error) {
	r.Envelope.Action = ActionUpdate
	if r.Metadata != nil {
		if raw, err := marshalToRaw(r.Metadata); err == nil {
			r.Envelope.Metadata = raw
		}
	}
	filterRaw, err := marshalToRaw(r.Filter)
	if err != nil {
		return nil, err
	}
	payload := bson.M{"filter": filterRaw, "replace": r.Document}
	return marshalRequest(r.Envelope, payload)
}

// Update carries a filter plus an update clause (a $set/$unset document,
// or arbitrary top-level keys the orchestrator normalizes into $set).
type Update struct {
	Envelope
	Filter   any
	Document any
	Metadata any
}

// MarshalBSON implements Request.
func (u Update) MarshalBSON() ([]byte, error) {
	u.Envelope.Action = ActionUpdate
	if u.Metadata != nil {
		if raw, err := marshalToRaw(u.Metadata); err == nil {
			u.Envelope.Metadata = raw
		}
	}
	filterRaw, err := marshalToRaw(u.Filter)
	if err != nil {
		return nil, err
	}
	payload := bson.M{"filter": filterRaw, "update": u.Document}
	return marshalRequest(u.Envelope, payload)
}

// Delete carries a filter identifying the documents to remove.
type Delete struct {
	Envelope
	Filter   any
	Metadata any
}

// MarshalBSON implements Request.
func (d Delete) MarshalBSON() ([]byte, error) {
	d.Envelope.Action = ActionDelete
	if d.Metadata != nil {
		if raw, err := marshalToRaw(d.Metadata); err == nil {
			d.Envelope.Metadata = raw
		}
	}
	return marshalRequest(d.Envelope, bson.M{"filter": d.Filter})
}

// Bulk accumulates a batch of inserts and a batch of remove filters,
// executed as two bulk writes server-side.
type Bulk struct {
	Envelope
	Insert   []any
	Remove   []any
	Metadata any
}

// MarshalBSON implements Request.
func (b Bulk) MarshalBSON() ([]byte, error) {
	b.Envelope.Action = ActionBulk
	if b.Metadata != nil {
		if raw, err := marshalToRaw(b.Metadata); err == nil {
			b.Envelope.Metadata = raw
		}
	}
	payload := bson.M{"insert": b.Insert, "remove": b.Remove}
	return marshalRequest(b.Envelope, payload)
}
