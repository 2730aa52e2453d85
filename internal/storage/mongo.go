package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// MongoStore persists records, sources and run logs to MongoDB collections.
type MongoStore struct {
	client  *mongo.Client
	records *mongo.Collection
	sources *mongo.Collection
	runs    *mongo.Collection
	logger  *slog.Logger
}

// NewMongoStore connects and pings the server.
func NewMongoStore(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:  client,
		records: db.Collection("news_items"),
		sources: db.Collection("data_sources"),
		runs:    db.Collection("scrape_logs"),
		logger:  logger.With("component", "mongo_store"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) wrap(err error) error {
	return &types.StorageError{Backend: "mongodb", Err: err}
}

// Migrate creates the lookup indexes.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "source_url", Value: 1}}},
		{Keys: bson.D{{Key: "date_time", Value: -1}}},
	})
	if err != nil {
		return s.wrap(fmt.Errorf("news_items indexes: %w", err))
	}
	_, err = s.sources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return s.wrap(fmt.Errorf("data_sources index: %w", err))
	}
	s.logger.Info("indexes ready")
	return nil
}

func (s *MongoStore) ListActiveSources(ctx context.Context) ([]types.SourceDescriptor, error) {
	return s.findSources(ctx, bson.M{"is_active": true})
}

func (s *MongoStore) ListSources(ctx context.Context) ([]types.SourceDescriptor, error) {
	return s.findSources(ctx, bson.M{})
}

func (s *MongoStore) findSources(ctx context.Context, filter bson.M) ([]types.SourceDescriptor, error) {
	cur, err := s.sources.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, s.wrap(fmt.Errorf("find sources: %w", err))
	}
	var out []types.SourceDescriptor
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.wrap(fmt.Errorf("decode sources: %w", err))
	}
	for i := range out {
		out[i].Category = types.CoerceCategory(string(out[i].Category))
	}
	return out, nil
}

func (s *MongoStore) UpsertSource(ctx context.Context, src *types.SourceDescriptor) (bool, error) {
	var existing types.SourceDescriptor
	err := s.sources.FindOne(ctx, bson.M{"url": src.URL}).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return false, s.wrap(fmt.Errorf("lookup source: %w", err))
	default:
		set := bson.M{}
		if src.Name != "" {
			set["source_name"] = src.Name
		}
		if src.Location != "" {
			set["location"] = src.Location
		}
		if src.Category != "" {
			set["category"] = types.CoerceCategory(string(src.Category))
		}
		src.ID = existing.ID
		if len(set) > 0 {
			if _, err := s.sources.UpdateByID(ctx, existing.ID, bson.M{"$set": set}); err != nil {
				return false, s.wrap(fmt.Errorf("update source: %w", err))
			}
		}
		return false, nil
	}

	if err := prepareSource(src); err != nil {
		return false, err
	}
	if _, err := s.sources.InsertOne(ctx, src); err != nil {
		return false, s.wrap(fmt.Errorf("insert source: %w", err))
	}
	return true, nil
}

func (s *MongoStore) SetSourceActive(ctx context.Context, id string, active bool) error {
	res, err := s.sources.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_active": active}})
	if err != nil {
		return s.wrap(fmt.Errorf("toggle source: %w", err))
	}
	if res.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

// existsFilter matches the exact URL or the title ignoring case.
func existsFilter(title, url string) bson.M {
	pattern := "^" + regexp.QuoteMeta(strings.TrimSpace(title)) + "$"
	return bson.M{"$or": bson.A{
		bson.M{"source_url": url},
		bson.M{"title": primitive.Regex{Pattern: pattern, Options: "i"}},
	}}
}

func (s *MongoStore) ExistsByTitleAndURL(ctx context.Context, title, url string) (bool, error) {
	n, err := s.records.CountDocuments(ctx, existsFilter(title, url), options.Count().SetLimit(1))
	if err != nil {
		return false, s.wrap(fmt.Errorf("exists: %w", err))
	}
	return n > 0, nil
}

func (s *MongoStore) Save(ctx context.Context, rec *types.NewsRecord) (*types.NewsRecord, error) {
	out, err := prepareRecord(rec)
	if err != nil {
		return nil, err
	}
	if _, err := s.records.InsertOne(ctx, out); err != nil {
		return nil, s.wrap(fmt.Errorf("insert record: %w", err))
	}
	s.logger.Debug("record stored", "id", out.ID)
	return out, nil
}

// recordsFilter translates f into a query document.
func recordsFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	when := bson.M{}
	if !f.Start.IsZero() {
		when["$gte"] = f.Start
	}
	if !f.End.IsZero() {
		when["$lte"] = f.End
	}
	if len(when) > 0 {
		filter["date_time"] = when
	}
	if !f.CreatedAfter.IsZero() {
		filter["created_at"] = bson.M{"$gt": f.CreatedAfter}
	}
	return filter
}

func (s *MongoStore) ListRecords(ctx context.Context, f Filter) ([]*types.NewsRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_time", Value: -1}})
	if f.Limit > 0 && (f.Near == nil || f.RadiusKm <= 0) {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.records.Find(ctx, recordsFilter(f), opts)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("find records: %w", err))
	}
	var out []*types.NewsRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.wrap(fmt.Errorf("decode records: %w", err))
	}
	return f.applyRadius(out), nil
}

func (s *MongoStore) CreateRun(ctx context.Context, run *types.ScrapeRun) error {
	if _, err := s.runs.InsertOne(ctx, run); err != nil {
		return s.wrap(fmt.Errorf("create run: %w", err))
	}
	return nil
}

func (s *MongoStore) UpdateRun(ctx context.Context, run *types.ScrapeRun) error {
	res, err := s.runs.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	if err != nil {
		return s.wrap(fmt.Errorf("update run: %w", err))
	}
	if res.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListRuns(ctx context.Context, n int) ([]*types.ScrapeRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}})
	if n > 0 {
		opts.SetLimit(int64(n))
	}
	cur, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("find runs: %w", err))
	}
	var out []*types.ScrapeRun
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.wrap(fmt.Errorf("decode runs: %w", err))
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb store closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
