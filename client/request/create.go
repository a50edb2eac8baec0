package request

// Create embeds a new document to be inserted. Document is owned (a
// value, not a reference) and is typically a bson.M or a typed struct
// with bson tags; a field named Id is written to the wire as "_id" by
// the driver's normal struct-tag behavior when the caller tags it so.
type Create struct {
	Envelope
	Document any
	Metadata any
}

// MarshalBSON implements Request.
func (c Create) MarshalBSON() ([]byte, error) {
	c.Envelope.Action = ActionCreate
	if c.Metadata != nil {
		if raw, err := marshalToRaw(c.Metadata); err == nil {
			c.Envelope.Metadata = raw
		}
	}
	return marshalRequest(c.Envelope, c.Document)
}

// CreateWithReference is identical to Create except Document is held by
// reference (a pointer) rather than copied — useful when the caller wants
// the same backing value reused across several requests without
// reallocating.
type CreateWithReference struct {
	Envelope
	Document any // expected to be a pointer
	Metadata any
}

// MarshalBSON implements Request.
func (c CreateWithReference) MarshalBSON() ([]byte, error) {
	c.Envelope.Action = ActionCreate
	if c.Metadata != nil {
		if raw, err := marshalToRaw(c.Metadata); err == nil {
			c.Envelope.Metadata = raw
		}
	}
	return marshalRequest(c.Envelope, c.Document)
}

// CreateTimeseries is like Create but the identifier is optional — the
// database assigns one when absent — and carries no metadata, since
// createTimeseries never produces a version-history entry.
type CreateTimeseries struct {
	Envelope
	Document any
}

// MarshalBSON implements Request.
func (c CreateTimeseries) MarshalBSON() ([]byte, error) {
	c.Envelope.Action = ActionCreateTimeseries
	return marshalRequest(c.Envelope, c.Document)
}

// MergeForId is an id-bearing partial document: a shorthand update
// request that carries its target id alongside the fields to merge in,
// rather than a separate filter.
type MergeForId struct {
	Envelope
	ID    ObjectID
	Patch any
	Metadata any
}

// MarshalBSON implements Request.
func (m MergeForId) MarshalBSON() ([]byte, error) {
	m.Envelope.Action = ActionUpdate
	if m.Metadata != nil {
		if raw, err := marshalToRaw(m.Metadata); err == nil {
			m.Envelope.Metadata = raw
		}
	}
	payload, err := mergeIDIntoPatch(m.ID, m.Patch)
	if err != nil {
		return nil, err
	}
	return marshalRequest(m.Envelope, payload)
}

// MergeForIdWithReference is MergeForId with Patch held by reference.
type MergeForIdWithReference struct {
	Envelope
	ID       ObjectID
	Patch    any // expected to be a pointer
	Metadata any
}

// MarshalBSON implements Request.
func (m MergeForIdWithReference) MarshalBSON() ([]byte, error) {
	m.Envelope.Action = ActionUpdate
	if m.Metadata != nil {
		if raw, err := marshalToRaw(m.Metadata); err == nil {
			m.Envelope.Metadata = raw
		}
	}
	payload, err := mergeIDIntoPatch(m.ID, m.Patch)
	if err != nil {
		return nil, err
	}
	return marshalRequest(m.Envelope, payload)
}
