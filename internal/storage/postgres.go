package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	headline         TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	location         TEXT NOT NULL DEFAULT '',
	source_url       TEXT NOT NULL,
	source_name      TEXT NOT NULL DEFAULT '',
	date_time        TIMESTAMPTZ NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_news_items_source_url ON news_items (source_url);
CREATE INDEX IF NOT EXISTS idx_news_items_lower_title ON news_items (LOWER(title));
CREATE INDEX IF NOT EXISTS idx_news_items_date_time ON news_items (date_time DESC);

CREATE TABLE IF NOT EXISTS data_sources (
	id          TEXT PRIMARY KEY,
	source_name TEXT NOT NULL,
	url         TEXT NOT NULL UNIQUE,
	category    TEXT NOT NULL,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	location    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scrape_logs (
	id               TEXT PRIMARY KEY,
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ,
	status           TEXT NOT NULL,
	total_items      INTEGER NOT NULL DEFAULT 0,
	successful_items INTEGER NOT NULL DEFAULT 0,
	error_items      INTEGER NOT NULL DEFAULT 0,
	log_details      TEXT NOT NULL DEFAULT ''
);`

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	recordColumns = []string{
		"id", "title", "headline", "description", "summary", "category",
		"latitude", "longitude", "location", "source_url", "source_name",
		"date_time", "confidence_score", "created_at",
	}
	sourceColumns = []string{"id", "source_name", "url", "category", "is_active", "location", "created_at"}
	runColumns    = []string{
		"id", "start_time", "end_time", "status",
		"total_items", "successful_items", "error_items", "log_details",
	}
)

// PostgresStore persists to PostgreSQL through the pgx database/sql driver.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore opens a pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewPostgresStoreFromDB(db, logger), nil
}

// NewPostgresStoreFromDB wraps an already opened handle.
func NewPostgresStoreFromDB(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.With("component", "postgres_store")}
}

func (s *PostgresStore) Name() string { return "postgres" }

// Migrate creates the tables and indexes when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return s.wrap(fmt.Errorf("migrate: %w", err))
	}
	s.logger.Info("schema ready")
	return nil
}

func (s *PostgresStore) wrap(err error) error {
	return &types.StorageError{Backend: "postgres", Err: err}
}

func (s *PostgresStore) ListActiveSources(ctx context.Context) ([]types.SourceDescriptor, error) {
	return s.sources(ctx, sq.Eq{"is_active": true})
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]types.SourceDescriptor, error) {
	return s.sources(ctx, nil)
}

func (s *PostgresStore) sources(ctx context.Context, where sq.Sqlizer) ([]types.SourceDescriptor, error) {
	q := psql.Select(sourceColumns...).From("data_sources").OrderBy("created_at", "source_name")
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, s.wrap(err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("list sources: %w", err))
	}
	defer rows.Close()

	var out []types.SourceDescriptor
	for rows.Next() {
		var src types.SourceDescriptor
		var category string
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &category, &src.Active, &src.Location, &src.CreatedAt); err != nil {
			return nil, s.wrap(fmt.Errorf("scan source: %w", err))
		}
		src.Category = types.CoerceCategory(category)
		out = append(out, src)
	}
	return out, s.rowsErr(rows)
}

func (s *PostgresStore) UpsertSource(ctx context.Context, src *types.SourceDescriptor) (bool, error) {
	query, args, err := psql.Select("id").From("data_sources").Where(sq.Eq{"url": src.URL}).ToSql()
	if err != nil {
		return false, s.wrap(err)
	}
	var id string
	switch err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return false, s.wrap(fmt.Errorf("lookup source: %w", err))
	default:
		set := map[string]any{}
		if src.Name != "" {
			set["source_name"] = src.Name
		}
		if src.Location != "" {
			set["location"] = src.Location
		}
		if src.Category != "" {
			set["category"] = string(types.CoerceCategory(string(src.Category)))
		}
		src.ID = id
		if len(set) == 0 {
			return false, nil
		}
		query, args, err := psql.Update("data_sources").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return false, s.wrap(err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return false, s.wrap(fmt.Errorf("update source: %w", err))
		}
		return false, nil
	}

	if err := prepareSource(src); err != nil {
		return false, err
	}
	query, args, err = psql.Insert("data_sources").Columns(sourceColumns...).
		Values(src.ID, src.Name, src.URL, string(src.Category), src.Active, src.Location, src.CreatedAt).
		ToSql()
	if err != nil {
		return false, s.wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return false, s.wrap(fmt.Errorf("insert source: %w", err))
	}
	return true, nil
}

func (s *PostgresStore) SetSourceActive(ctx context.Context, id string, active bool) error {
	query, args, err := psql.Update("data_sources").Set("is_active", active).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return s.wrap(err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.wrap(fmt.Errorf("toggle source: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// existsQuery builds the duplicate lookup used before every insert.
func existsQuery(title, url string) (string, []any, error) {
	return psql.Select("1").From("news_items").
		Where(sq.Or{
			sq.Eq{"source_url": url},
			sq.Expr("LOWER(title) = LOWER(?)", strings.TrimSpace(title)),
		}).
		Limit(1).
		ToSql()
}

func (s *PostgresStore) ExistsByTitleAndURL(ctx context.Context, title, url string) (bool, error) {
	query, args, err := existsQuery(title, url)
	if err != nil {
		return false, s.wrap(err)
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.wrap(fmt.Errorf("exists: %w", err))
	}
	return true, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *types.NewsRecord) (*types.NewsRecord, error) {
	out, err := prepareRecord(rec)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Insert("news_items").Columns(recordColumns...).
		Values(out.ID, out.Title, out.Headline, out.Description, out.Summary, string(out.Category),
			out.Latitude, out.Longitude, out.Location, out.SourceURL, out.SourceName,
			out.PublishedAt, out.Confidence, out.CreatedAt).
		ToSql()
	if err != nil {
		return nil, s.wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, s.wrap(fmt.Errorf("insert record: %w", err))
	}
	s.logger.Debug("record stored", "id", out.ID)
	return out, nil
}

// recordsQuery translates f into SQL. Distance is not evaluated in SQL, so the
// limit is only pushed down when no radius is set.
func recordsQuery(f Filter) (string, []any, error) {
	q := psql.Select(recordColumns...).From("news_items")
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": string(f.Category)})
	}
	if !f.Start.IsZero() {
		q = q.Where(sq.GtOrEq{"date_time": f.Start})
	}
	if !f.End.IsZero() {
		q = q.Where(sq.LtOrEq{"date_time": f.End})
	}
	if !f.CreatedAfter.IsZero() {
		q = q.Where(sq.Gt{"created_at": f.CreatedAfter})
	}
	q = q.OrderBy("date_time DESC")
	if f.Limit > 0 && (f.Near == nil || f.RadiusKm <= 0) {
		q = q.Limit(uint64(f.Limit))
	}
	return q.ToSql()
}

func (s *PostgresStore) ListRecords(ctx context.Context, f Filter) ([]*types.NewsRecord, error) {
	query, args, err := recordsQuery(f)
	if err != nil {
		return nil, s.wrap(err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("list records: %w", err))
	}
	defer rows.Close()

	var out []*types.NewsRecord
	for rows.Next() {
		r := &types.NewsRecord{}
		var category string
		if err := rows.Scan(&r.ID, &r.Title, &r.Headline, &r.Description, &r.Summary, &category,
			&r.Latitude, &r.Longitude, &r.Location, &r.SourceURL, &r.SourceName,
			&r.PublishedAt, &r.Confidence, &r.CreatedAt); err != nil {
			return nil, s.wrap(fmt.Errorf("scan record: %w", err))
		}
		r.Category = types.CoerceCategory(category)
		out = append(out, r)
	}
	if err := s.rowsErr(rows); err != nil {
		return nil, err
	}
	return f.applyRadius(out), nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *types.ScrapeRun) error {
	query, args, err := psql.Insert("scrape_logs").Columns(runColumns...).
		Values(run.ID, run.StartTime, endTime(run), string(run.Status),
			run.Total, run.Successful, run.Errors, run.Details()).
		ToSql()
	if err != nil {
		return s.wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.wrap(fmt.Errorf("create run: %w", err))
	}
	return nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *types.ScrapeRun) error {
	query, args, err := psql.Update("scrape_logs").SetMap(map[string]any{
		"end_time":         endTime(run),
		"status":           string(run.Status),
		"total_items":      run.Total,
		"successful_items": run.Successful,
		"error_items":      run.Errors,
		"log_details":      run.Details(),
	}).Where(sq.Eq{"id": run.ID}).ToSql()
	if err != nil {
		return s.wrap(err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.wrap(fmt.Errorf("update run: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, n int) ([]*types.ScrapeRun, error) {
	q := psql.Select(runColumns...).From("scrape_logs").OrderBy("start_time DESC")
	if n > 0 {
		q = q.Limit(uint64(n))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, s.wrap(err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("list runs: %w", err))
	}
	defer rows.Close()

	var out []*types.ScrapeRun
	for rows.Next() {
		run := &types.ScrapeRun{}
		var end sql.NullTime
		var status, details string
		if err := rows.Scan(&run.ID, &run.StartTime, &end, &status,
			&run.Total, &run.Successful, &run.Errors, &details); err != nil {
			return nil, s.wrap(fmt.Errorf("scan run: %w", err))
		}
		run.Status = types.RunStatus(status)
		if end.Valid {
			t := end.Time
			run.EndTime = &t
		}
		if details != "" {
			run.Log = strings.Split(details, "\n")
		}
		out = append(out, run)
	}
	return out, s.rowsErr(rows)
}

func (s *PostgresStore) rowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.logger.Info("postgres store closing")
	return s.db.Close()
}

func endTime(run *types.ScrapeRun) sql.NullTime {
	if run.EndTime == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *run.EndTime, Valid: true}
}
