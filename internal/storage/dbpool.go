// Package storage is the service-side storage orchestrator: it accepts
// framed BSON requests, dispatches them by action, and executes each as a
// co-transactional sequence against both the target collection and the
// version-history collection.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/oriys/mongosvc/internal/config"
	"github.com/oriys/mongosvc/internal/logging"
)

// DBPool wraps the underlying *mongo.Client. The driver pools its own TCP
// connections internally; this type is the service-side analogue of the
// spec's "Database Pool" — distinct from client/pool.Pool[C], which pools
// this service's own listener connections as seen by embedding clients.
type DBPool struct {
	client *mongo.Client
	cfg    *config.Config

	// DefaultWriteConcern is inherited by create/update/delete/bulk when
	// the request's options.writeConcern is absent.
	DefaultWriteConcern *writeconcern.WriteConcern
}

// NewDBPool connects to the configured Mongo URI and ensures the
// version-history collection carries the indexes the original
// implementation creates at startup: database, collection, entity._id.
func NewDBPool(ctx context.Context, cfg *config.Config) (*DBPool, error) {
	opts := options.Client().ApplyURI(cfg.Database.URI).
		SetConnectTimeout(cfg.Database.ConnectTimeout).
		SetServerSelectionTimeout(cfg.Database.ServerSelection)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ServerSelection)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	p := &DBPool{
		client:              client,
		cfg:                 cfg,
		DefaultWriteConcern: writeconcern.Majority(),
	}

	if err := p.EnsureHistoryIndexes(ctx); err != nil {
		logging.Op().Warn("failed to create version-history indexes", "err", err)
	}
	return p, nil
}

// EnsureHistoryIndexes (re)creates the version-history collection's
// indexes: database, collection, entity._id. Exposed so the admin RPC
// surface can trigger a reindex on demand.
func (p *DBPool) EnsureHistoryIndexes(ctx context.Context) error {
	coll := p.HistoryCollection()
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "database", Value: 1}}},
		{Keys: bson.D{{Key: "collection", Value: 1}}},
		{Keys: bson.D{{Key: "entity._id", Value: 1}}},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

// Database returns a handle to the named database.
func (p *DBPool) Database(name string) *mongo.Database {
	return p.client.Database(name)
}

// Collection returns a handle to (database, collection).
func (p *DBPool) Collection(database, collection string) *mongo.Collection {
	return p.client.Database(database).Collection(collection)
}

// HistoryCollection returns a handle to the configured protected
// version-history collection.
func (p *DBPool) HistoryCollection() *mongo.Collection {
	return p.Collection(p.cfg.VersionHistory.Database, p.cfg.VersionHistory.Collection)
}

// IsProtected reports whether (database, collection) is the configured
// version-history pair — the target of the protected-collection invariant.
func (p *DBPool) IsProtected(database, collection string) bool {
	return database == p.cfg.VersionHistory.Database && collection == p.cfg.VersionHistory.Collection
}

// Client exposes the underlying driver client, for session/transaction use.
func (p *DBPool) Client() *mongo.Client {
	return p.client
}

// Close disconnects from the database.
func (p *DBPool) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}

// context helper shared by handlers for bounding a single request.
func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(parent, d)
}
