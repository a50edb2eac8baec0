package request

import "go.mongodb.org/mongo-driver/v2/bson"

// ObjectID is a re-export of the driver's object-id type, kept local so
// call sites importing this package rarely need the bson package
// directly for the common case of building a request.
type ObjectID = bson.ObjectID

// NewObjectID generates a fresh object identifier.
func NewObjectID() ObjectID {
	return bson.NewObjectID()
}
