package request

import "go.mongodb.org/mongo-driver/v2/bson"

// Index carries an index key specification plus a rich options map
// (collation, background, unique, hidden, sparse, name, TTL, partial
// filter, weights, default language, language override, 2d parameters,
// versions). Fields in Options not directly consumed by the orchestrator
// are forwarded transparently to the underlying index-creation call.
type Index struct {
	Envelope
	Spec any
}

// MarshalBSON implements Request.
func (i Index) MarshalBSON() ([]byte, error) {
	i.Envelope.Action = ActionIndex
	return marshalRequest(i.Envelope, bson.M{"spec": i.Spec})
}

// DropIndex identifies an index to drop either by name (via Options.name)
// or by its key specification document.
type DropIndex struct {
	Envelope
	Spec any
}

// MarshalBSON implements Request.
func (d DropIndex) MarshalBSON() ([]byte, error) {
	d.Envelope.Action = ActionDropIndex
	payload := bson.M{}
	if d.Spec != nil {
		payload["spec"] = d.Spec
	}
	return marshalRequest(d.Envelope, payload)
}

// CreateCollection carries the options used to create a new collection:
// timeseries, clustered index, capped size/max, validator, validation
// action/level, storage engine, collation, change-stream pre/post images,
// expire-after-seconds.
type CreateCollection struct {
	Envelope
	Options any
}

// MarshalBSON implements Request.
func (c CreateCollection) MarshalBSON() ([]byte, error) {
	c.Envelope.Action = ActionCreateCollection
	if c.Options != nil {
		raw, err := marshalToRaw(c.Options)
		if err != nil {
			return nil, err
		}
		c.Envelope.Options = raw
	}
	return marshalRequest(c.Envelope, bson.M{})
}

// RenameCollection carries the new name for the collection.
type RenameCollection struct {
	Envelope
	NewName string
}

// MarshalBSON implements Request.
func (r RenameCollection) MarshalBSON() ([]byte, error) {
	r.Envelope.Action = ActionRenameCollection
	payload := bson.M{"newName": r.NewName}
	return marshalRequest(r.Envelope, payload)
}

// DropCollection optionally enqueues deletion of the collection's
// version-history entries via ClearVersionHistory.
type DropCollection struct {
	Envelope
	ClearVersionHistory bool
}

// MarshalBSON implements Request.
func (d DropCollection) MarshalBSON() ([]byte, error) {
	d.Envelope.Action = ActionDropCollection
	payload := bson.M{"clearVersionHistory": d.ClearVersionHistory}
	return marshalRequest(d.Envelope, payload)
}
