package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/internal/auditlog"
	"github.com/oriys/mongosvc/internal/logging"
)

// handleTransaction implements `transaction`: document.items is a list of
// full request documents, each with action in {create, update, delete}.
// Every item runs inside one multi-document session transaction,
// including its version-history write; the whole batch commits or aborts
// as a unit. The audit ledger records item count, outcome, and duration
// independent of Mongo's own durability.
func (o *Orchestrator) handleTransaction(ctx context.Context, env requestEnvelope) (bson.M, int) {
	start := time.Now()

	var body struct {
		Items []bson.Raw `bson:"items"`
	}
	if err := bson.Unmarshal(env.Document, &body); err != nil || len(body.Items) == 0 {
		return errorDoc("missing items"), 0
	}

	session, err := o.db.Client().StartSession()
	if err != nil {
		return errorDoc("unable to start session: " + err.Error()), 0
	}
	defer session.EndSession(ctx)

	var outcomes []bson.M
	totalWrites := 0

	_, txErr := session.WithTransaction(ctx, func(sc context.Context) (any, error) {
		outcomes = nil
		totalWrites = 0
		for _, item := range body.Items {
			var itemEnv requestEnvelope
			if err := bson.Unmarshal(item, &itemEnv); err != nil {
				outcomes = append(outcomes, bson.M{"error": "malformed item"})
				return nil, mongoItemError{msg: "malformed item"}
			}
			if itemEnv.Action != "create" && itemEnv.Action != "update" && itemEnv.Action != "delete" {
				outcomes = append(outcomes, bson.M{"error": "invalid action"})
				return nil, mongoItemError{msg: "invalid action in transaction item"}
			}
			if o.db.IsProtected(itemEnv.Database, itemEnv.Collection) {
				outcomes = append(outcomes, bson.M{"error": "not modifiable"})
				return nil, mongoItemError{msg: "not modifiable"}
			}

			var result bson.M
			var writes int
			switch itemEnv.Action {
			case "create":
				result, writes = o.handleCreate(sc, itemEnv)
			case "update":
				result, writes = o.handleUpdate(sc, itemEnv)
			case "delete":
				result, writes = o.handleDelete(sc, itemEnv)
			}
			totalWrites += writes
			_, isErr := result["error"]
			outcomes = append(outcomes, bson.M{"action": itemEnv.Action, "success": !isErr, "result": result})
			if isErr {
				return nil, mongoItemError{msg: result["error"].(string)}
			}
		}
		return nil, nil
	})

	committed := txErr == nil
	errMsg := ""
	if txErr != nil {
		errMsg = txErr.Error()
	}

	if o.ledger != nil {
		entry := auditlog.Entry{
			ID:            bson.NewObjectID().Hex(),
			Database:      env.Database,
			Collection:    env.Collection,
			Application:   env.Application,
			CorrelationID: env.CorrelationID,
			ItemCount:     len(body.Items),
			Committed:     committed,
			ErrorMessage:  errMsg,
			Items:         outcomes,
			Duration:      time.Since(start),
		}
		if err := o.ledger.Record(ctx, entry); err != nil {
			logging.Op().Warn("failed to record transaction audit entry", "err", err)
		}
	}

	resp := bson.M{"committed": committed, "items": outcomes}
	if !committed {
		resp["error"] = errMsg
	}
	return resp, totalWrites
}

// mongoItemError aborts session.WithTransaction's retry loop on a
// business-logic failure (as opposed to a transient transaction error the
// driver would otherwise retry).
type mongoItemError struct {
	msg string
}

func (e mongoItemError) Error() string { return e.msg }
