// Package archive is the version-history archival worker: it sweeps
// history documents older than the configured retention window, uploads
// them as gzipped newline-delimited BSON to an S3-compatible bucket, and
// deletes the archived rows from the live collection. Grounded on
// transparency-dev/trillian-tessera's S3 storage (the objStore
// get/put-object abstraction, gzip-before-upload convention), adapted
// from log-tile storage to version-history retention.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/oriys/mongosvc/internal/config"
	"github.com/oriys/mongosvc/internal/logging"
)

// objStore is the minimal capability the archiver needs from its backing
// object store, kept in spirit with the get/put/list abstraction used by
// tessera's S3 storage.
type objStore interface {
	put(ctx context.Context, key string, data []byte) error
	list(ctx context.Context, prefix string) ([]string, error)
}

type s3Store struct {
	client *s3.Client
	bucket string
}

func (s *s3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *s3Store) list(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

// Archiver periodically (or on-demand) moves aged version-history
// documents to cold storage.
type Archiver struct {
	store   objStore
	history *mongo.Collection
	cfg     config.ArchiveConfig
}

// New builds an Archiver. When cfg.Enabled is false, Run and Sweep are
// no-ops, so callers can construct and wire it unconditionally.
func New(ctx context.Context, cfg config.ArchiveConfig, history *mongo.Collection) (*Archiver, error) {
	a := &Archiver{history: history, cfg: cfg}
	if !cfg.Enabled {
		return a, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	a.store = &s3Store{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}
	return a, nil
}

// Run starts the periodic sweep loop; it returns when ctx is canceled.
func (a *Archiver) Run(ctx context.Context) {
	if !a.cfg.Enabled {
		return
	}
	interval := a.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Sweep(ctx); err != nil {
				logging.Op().Warn("archive sweep failed", "err", err)
			}
		}
	}
}

// Sweep finds version-history documents older than the retention window,
// uploads them as a single gzipped newline-delimited BSON object, then
// deletes the archived rows. dropCollection's clearVersionHistory flag
// uses SweepFor instead, which is scoped to one collection.
func (a *Archiver) Sweep(ctx context.Context) error {
	if !a.cfg.Enabled {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -a.cfg.RetentionDays)
	filter := bson.M{"created": bson.M{"$lt": cutoff}}

	cur, err := a.history.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("find aged history: %w", err)
	}
	defer cur.Close(ctx)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	var ids []any
	count := 0
	for cur.Next(ctx) {
		gz.Write(cur.Current)
		gz.Write([]byte("\n"))
		var doc struct {
			ID bson.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err == nil {
			ids = append(ids, doc.ID)
		}
		count++
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip history batch: %w", err)
	}
	if count == 0 {
		return nil
	}

	key := fmt.Sprintf("%s%s.bson.gz", a.cfg.Prefix, time.Now().UTC().Format("20060102T150405"))
	if err := a.store.put(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("upload archive object: %w", err)
	}

	if _, err := a.history.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete archived history rows: %w", err)
	}
	logging.Op().Info("archived version-history batch", "count", count, "key", key)
	return nil
}

// SweepFor immediately archives every history document for (database,
// collection), independent of age — the path taken when dropCollection's
// clearVersionHistory flag is set.
func (a *Archiver) SweepFor(ctx context.Context, database, collection string) error {
	if !a.cfg.Enabled {
		// Archival disabled: the caller (dropCollection) still deletes the
		// rows directly; nothing to upload first.
		return nil
	}
	filter := bson.M{"database": database, "collection": collection}
	cur, err := a.history.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("find collection history: %w", err)
	}
	defer cur.Close(ctx)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	count := 0
	for cur.Next(ctx) {
		gz.Write(cur.Current)
		gz.Write([]byte("\n"))
		count++
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip collection history: %w", err)
	}
	if count == 0 {
		return nil
	}

	key := fmt.Sprintf("%s%s-%s-%s.bson.gz", a.cfg.Prefix, database, collection, time.Now().UTC().Format("20060102T150405"))
	return a.store.put(ctx, key, buf.Bytes())
}
