package request

import "go.mongodb.org/mongo-driver/v2/bson"

// ErrorResponse is the shape of a failed reply: a document containing
// only an "error" string key.
type ErrorResponse struct {
	Error string `bson:"error"`
}

// AsError attempts to interpret raw as an ErrorResponse, returning ok=true
// only when an "error" key is actually present.
func AsError(raw bson.Raw) (ErrorResponse, bool) {
	var e ErrorResponse
	if err := bson.Unmarshal(raw, &e); err != nil || e.Error == "" {
		return ErrorResponse{}, false
	}
	return e, true
}

// CreateResponse is the success shape of a create action.
type CreateResponse struct {
	ID          ObjectID `bson:"_id"`
	Database    string   `bson:"database,omitempty"`
	Collection  string   `bson:"collection,omitempty"`
	Entity      ObjectID `bson:"entity,omitempty"`
	SkipVersion bool     `bson:"skipVersion,omitempty"`
}

// CreateTimeseriesResponse is the response shape of createTimeseries.
type CreateTimeseriesResponse struct {
	Database   string   `bson:"database"`
	Collection string   `bson:"collection"`
	ID         ObjectID `bson:"_id"`
}

// RetrieveOneResponse is the by-id retrieve response shape.
type RetrieveOneResponse struct {
	Result bson.Raw `bson:"result"`
}

// RetrieveManyResponse is the by-filter retrieve response shape.
type RetrieveManyResponse struct {
	Results []bson.Raw `bson:"results"`
}

// CountResponse is the response shape of count.
type CountResponse struct {
	Count int64 `bson:"count"`
}

// DistinctResponse is the response shape of distinct.
type DistinctResponse struct {
	Results []struct {
		Values []any `bson:"values"`
	} `bson:"results"`
}

// DeleteResponse is the response shape of delete.
type DeleteResponse struct {
	Success []ObjectID `bson:"success"`
	Failure []ObjectID `bson:"failure"`
	History []ObjectID `bson:"history"`
}

// BulkResponse is the response shape of bulk.
type BulkResponse struct {
	Create  int64 `bson:"create"`
	History int64 `bson:"history"`
	Remove  int64 `bson:"remove"`
}

// DropIndexResponse is the response shape of dropIndex.
type DropIndexResponse struct {
	DropIndex bool `bson:"dropIndex"`
}

// DropCollectionResponse is the response shape of dropCollection.
type DropCollectionResponse struct {
	DropCollection bool `bson:"dropCollection"`
}

// TransactionItemOutcome captures one item's per-item result within a
// transaction response.
type TransactionItemOutcome struct {
	Action  string   `bson:"action"`
	Success bool     `bson:"success"`
	Error   string   `bson:"error,omitempty"`
	Result  bson.Raw `bson:"result,omitempty"`
}

// TransactionResponse is the response shape of transaction.
type TransactionResponse struct {
	Committed bool                     `bson:"committed"`
	Items     []TransactionItemOutcome `bson:"items"`
}
