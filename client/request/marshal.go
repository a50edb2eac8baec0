package request

import "go.mongodb.org/mongo-driver/v2/bson"

// marshalToRaw marshals v to a bson.Raw, for fields that accept the
// shared Envelope.Metadata/Options slots as opaque payloads.
func marshalToRaw(v any) (bson.Raw, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bson.Raw(data), nil
}

// mergeIDIntoPatch flattens patch into a bson.M and sets its "_id" key to
// id, implementing the id/_id structural rename convention for the
// id-bearing merge schemas.
func mergeIDIntoPatch(id ObjectID, patch any) (bson.M, error) {
	data, err := bson.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = bson.M{}
	}
	m["_id"] = id
	return m, nil
}
