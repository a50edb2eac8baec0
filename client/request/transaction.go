package request

import "go.mongodb.org/mongo-driver/v2/bson"

// TransactionBuilder accumulates a list of heterogeneous pre-marshaled
// item requests plus a target (database, collection) and emits a single
// composite request with action "transaction" on Build. It does not
// itself validate items; validation happens server-side, per item, by
// the orchestrator.
type TransactionBuilder struct {
	env   Envelope
	items []bson.M
}

// NewTransactionBuilder starts a builder targeting the given database and
// collection.
func NewTransactionBuilder(database, collection string) *TransactionBuilder {
	return &TransactionBuilder{
		env: Envelope{Database: database, Collection: collection},
	}
}

// WithApplication sets the calling application name on the composite
// request.
func (b *TransactionBuilder) WithApplication(app string) *TransactionBuilder {
	b.env.Application = app
	return b
}

// WithCorrelationID sets the correlation id echoed back for tracing.
func (b *TransactionBuilder) WithCorrelationID(id string) *TransactionBuilder {
	b.env.CorrelationID = id
	return b
}

// Add appends one item request. item's action must be one of create,
// update, delete; the builder does not check this — the orchestrator
// rejects an invalid item action at commit time.
func (b *TransactionBuilder) Add(item Request) (*TransactionBuilder, error) {
	data, err := item.MarshalBSON()
	if err != nil {
		return b, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return b, err
	}
	b.items = append(b.items, m)
	return b, nil
}

// Build emits the composite transaction request document.
func (b *TransactionBuilder) Build() (Request, error) {
	return transactionRequest{env: b.env, items: b.items}, nil
}

type transactionRequest struct {
	env   Envelope
	items []bson.M
}

// MarshalBSON implements Request.
func (t transactionRequest) MarshalBSON() ([]byte, error) {
	t.env.Action = ActionTransaction
	payload := bson.M{"items": t.items}
	return marshalRequest(t.env, payload)
}
