package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/oriys/mongosvc/internal/archive"
	"github.com/oriys/mongosvc/internal/auditlog"
	"github.com/oriys/mongosvc/internal/config"
	"github.com/oriys/mongosvc/internal/logging"
	"github.com/oriys/mongosvc/internal/metrics"
	"github.com/oriys/mongosvc/internal/readcache"
	"github.com/oriys/mongosvc/internal/validate"
)

// requestEnvelope is the service-side mirror of client/request.Envelope:
// the shared fields recognized on every request document, parsed directly
// off the wire rather than round-tripped through the client's typed
// schemas.
type requestEnvelope struct {
	Action        string   `bson:"action"`
	Database      string   `bson:"database"`
	Collection    string   `bson:"collection"`
	Document      bson.Raw `bson:"document"`
	Options       bson.Raw `bson:"options"`
	Metadata      bson.Raw `bson:"metadata"`
	CorrelationID string   `bson:"correlationId"`
	Application   string   `bson:"application"`
	SkipVersion   bool     `bson:"skipVersion"`
	SkipMetric    bool     `bson:"skipMetric"`
}

// Orchestrator is the service-side storage orchestrator: the heart of the
// design. Each mutating handler executes primary mutation, then
// version-history append, then response assembly, as described in the
// component design.
type Orchestrator struct {
	db                *DBPool
	cfg               *config.Config
	metricsCollector  *metrics.Collector
	cache             *readcache.Cache
	archiver          *archive.Archiver
	ledger            *auditlog.Ledger
}

// New builds an Orchestrator wired to its dependent subsystems. cache,
// archiver, and ledger may be disabled-but-non-nil instances (see their
// respective New constructors) when their config sections are off.
func New(db *DBPool, cfg *config.Config, mc *metrics.Collector, cache *readcache.Cache, arc *archive.Archiver, ledger *auditlog.Ledger) *Orchestrator {
	return &Orchestrator{db: db, cfg: cfg, metricsCollector: mc, cache: cache, archiver: arc, ledger: ledger}
}

func errorDoc(message string) bson.M {
	return bson.M{"error": message}
}

// Dispatch is the top-level entry point: parse the envelope, enforce the
// protected-collection invariant, route by action, time and log the
// outcome, and catch any panic from a handler as a generic unexpected
// error rather than crashing the connection's goroutine.
func (o *Orchestrator) Dispatch(ctx context.Context, raw bson.Raw) (reply bson.Raw, err error) {
	start := time.Now()

	var env requestEnvelope
	if err := bson.Unmarshal(raw, &env); err != nil {
		return mustMarshal(errorDoc("malformed request"))
	}

	resultDoc, historyWrites := o.dispatchAction(ctx, env)

	outcome := metrics.OutcomeSuccess
	if _, isErr := resultDoc["error"]; isErr {
		outcome = metrics.OutcomeDataError
	}

	data, marshalErr := bson.Marshal(resultDoc)
	if marshalErr != nil {
		data, _ = bson.Marshal(errorDoc("unable to encode response"))
		outcome = metrics.OutcomeDataError
	}

	durationMs := time.Since(start).Milliseconds()
	if !env.SkipMetric && o.metricsCollector != nil {
		o.metricsCollector.Observe(env.Action, outcome, durationMs, len(data), historyWrites)
	}

	logging.Default().Log(&logging.ActionLog{
		CorrelationID: env.CorrelationID,
		Action:        env.Action,
		Database:      env.Database,
		Collection:    env.Collection,
		Application:   env.Application,
		DurationMs:    durationMs,
		Outcome:       outcome,
		SkipVersion:   env.SkipVersion,
		HistoryWrites: historyWrites,
	})

	return bson.Raw(data), nil
}

// dispatchAction translates the action string through the fixed
// enumeration; unknown actions are rejected with "invalid action". Any
// panic raised by a handler (a bulk-write error or a logic error
// surfacing as a Go panic from the driver) is caught and folded into a
// generic "unexpected error" response, matching the original's catch-all
// exception handling.
func (o *Orchestrator) dispatchAction(ctx context.Context, env requestEnvelope) (doc bson.M, historyWrites int) {
	defer func() {
		if r := recover(); r != nil {
			doc = errorDoc("unexpected error")
			historyWrites = 0
			logging.Op().Error("panic in storage orchestrator handler", "action", env.Action, "recovered", r)
		}
	}()

	if env.Action != "transaction" && o.db.IsProtected(env.Database, env.Collection) {
		switch env.Action {
		case "create", "update", "delete":
			return errorDoc("not modifiable"), 0
		}
	}

	if !validate.Document(env.Document) {
		return errorDoc("invalid content"), 0
	}

	switch env.Action {
	case "create":
		return o.handleCreate(ctx, env)
	case "createTimeseries":
		return o.handleCreateTimeseries(ctx, env)
	case "retrieve":
		return o.handleRetrieve(ctx, env)
	case "update":
		return o.handleUpdate(ctx, env)
	case "delete":
		return o.handleDelete(ctx, env)
	case "count":
		return o.handleCount(ctx, env)
	case "distinct":
		return o.handleDistinct(ctx, env)
	case "pipeline":
		return o.handlePipeline(ctx, env)
	case "index":
		return o.handleIndex(ctx, env)
	case "dropIndex":
		return o.handleDropIndex(ctx, env)
	case "bulk":
		return o.handleBulk(ctx, env)
	case "transaction":
		return o.handleTransaction(ctx, env)
	case "createCollection":
		return o.handleCreateCollection(ctx, env)
	case "renameCollection":
		return o.handleRenameCollection(ctx, env)
	case "dropCollection":
		return o.handleDropCollection(ctx, env)
	default:
		return errorDoc("invalid action"), 0
	}
}

func mustMarshal(doc bson.M) (bson.Raw, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal fallback error document: %w", err)
	}
	return bson.Raw(data), nil
}

// resolveWriteConcern parses options.writeConcern (w, j, wtimeout) from the
// request's options document, falling back to the pool's default write
// concern when absent.
func (o *Orchestrator) resolveWriteConcern(optionsDoc bson.Raw) *writeconcern.WriteConcern {
	if len(optionsDoc) == 0 {
		return o.db.DefaultWriteConcern
	}
	wcVal, err := optionsDoc.LookupErr("writeConcern")
	if err != nil {
		return o.db.DefaultWriteConcern
	}
	wcDoc := wcVal.Document()

	var opts struct {
		W       any  `bson:"w"`
		J       bool `bson:"j"`
		Wtimeout int32 `bson:"wtimeout"`
	}
	if err := bson.Unmarshal(wcDoc, &opts); err != nil {
		return o.db.DefaultWriteConcern
	}

	wc := &writeconcern.WriteConcern{}
	switch w := opts.W.(type) {
	case int32:
		wc.W = int(w)
	case int64:
		wc.W = int(w)
	case string:
		wc.W = w
	}
	if opts.J {
		j := true
		wc.Journal = &j
	}
	if opts.Wtimeout > 0 {
		wc.WTimeout = time.Duration(opts.Wtimeout) * time.Millisecond
	}
	return wc
}

// resolveReadConcern parses options.readConcern from the request's options
// document.
func (o *Orchestrator) resolveReadConcern(optionsDoc bson.Raw) *readconcern.ReadConcern {
	if len(optionsDoc) == 0 {
		return nil
	}
	val, err := optionsDoc.LookupErr("readConcern")
	if err != nil {
		return nil
	}
	var level string
	if val.Unmarshal(&level) != nil {
		return nil
	}
	return readconcern.New(readconcern.Level(level))
}

// resolveReadPreference parses options.readPreference from the request's
// options document.
func (o *Orchestrator) resolveReadPreference(optionsDoc bson.Raw) *readpref.ReadPref {
	if len(optionsDoc) == 0 {
		return readpref.Primary()
	}
	val, err := optionsDoc.LookupErr("readPreference")
	if err != nil {
		return readpref.Primary()
	}
	var mode string
	if val.Unmarshal(&mode) != nil {
		return readpref.Primary()
	}
	rp, err := readpref.ModeFromString(mode)
	if err != nil {
		return readpref.Primary()
	}
	pref, err := readpref.New(rp)
	if err != nil {
		return readpref.Primary()
	}
	return pref
}
