// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotboard/internal/hotlist"
)

// StoreConfig controls the Postgres connection pool backing the store.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists crawl sources and their hot items in Postgres. It
// implements hotlist.Store; every partition merge runs inside one
// transaction.
type Store struct {
	pool pgxPool
}

// NewStore connects a pool using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT NOT NULL,
	category     TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (name, category)
);

CREATE TABLE IF NOT EXISTS hot_items (
	id            BIGSERIAL PRIMARY KEY,
	source_id     BIGINT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	source_key    TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL,
	url           TEXT NOT NULL,
	rank          INT NOT NULL DEFAULT 0,
	score         BIGINT NOT NULL DEFAULT 0,
	comment_count INT NOT NULL DEFAULT 0,
	description   TEXT NOT NULL DEFAULT '',
	author        TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL DEFAULT '',
	tags          TEXT[] NOT NULL DEFAULT '{}',
	published_at  TIMESTAMPTZ,
	crawled_at    TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_id, url)
);

CREATE INDEX IF NOT EXISTS idx_hot_items_partition
	ON hot_items (source_id, crawled_at DESC, rank ASC);
`

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// GetOrCreateSource resolves a partition to its row id, creating it on
// first sight. The display name is set on creation only; later crawls
// never overwrite it.
func (s *Store) GetOrCreateSource(ctx context.Context, src hotlist.Source) (int64, error) {
	if src.Name == "" || src.Category == "" {
		return 0, fmt.Errorf("source name and category are required")
	}
	const query = `
INSERT INTO sources (name, category, display_name)
VALUES ($1, $2, $3)
ON CONFLICT (name, category) DO UPDATE SET name = excluded.name
RETURNING id`
	var id int64
	if err := s.pool.QueryRow(ctx, query, src.Name, src.Category, src.DisplayName).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve source %s: %w", src.PartitionKey(), err)
	}
	return id, nil
}

// MergePartition runs fn inside a transaction scoped to one partition.
// Any error from fn rolls the whole merge back.
func (s *Store) MergePartition(ctx context.Context, sourceID int64, fn func(tx hotlist.PartitionTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&partitionTx{tx: tx, sourceID: sourceID}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// ListItems returns a partition's items ordered by rank, plus the
// freshest crawl timestamp for staleness checks.
func (s *Store) ListItems(ctx context.Context, name, category string) ([]hotlist.StoredItem, time.Time, error) {
	const query = `
SELECT i.id, i.source_id, i.source_key, i.title, i.url, i.rank, i.score,
       i.comment_count, i.description, i.author, i.image_url, i.tags,
       i.published_at, i.crawled_at, i.created_at
FROM hot_items i
JOIN sources s ON s.id = i.source_id
WHERE s.name = $1 AND s.category = $2
ORDER BY i.rank ASC, i.crawled_at DESC`
	rows, err := s.pool.Query(ctx, query, name, category)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list items %s/%s: %w", name, category, err)
	}
	defer rows.Close()

	var (
		items    []hotlist.StoredItem
		freshest time.Time
	)
	for rows.Next() {
		var it hotlist.StoredItem
		if err := rows.Scan(
			&it.ID, &it.SourceID, &it.SourceKey, &it.Title, &it.URL, &it.Rank, &it.Score,
			&it.CommentCount, &it.Description, &it.Author, &it.ImageURL, &it.Tags,
			&it.PublishedAt, &it.CrawledAt, &it.CreatedAt,
		); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan item: %w", err)
		}
		if it.CrawledAt.After(freshest) {
			freshest = it.CrawledAt
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("list items %s/%s: %w", name, category, err)
	}
	return items, freshest, nil
}

// EvictStale deletes every item last crawled before the cutoff,
// regardless of partition.
func (s *Store) EvictStale(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hot_items WHERE crawled_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("evict stale items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping reports pool health.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// partitionTx is the transactional view of one partition handed to the
// ingestion engine.
type partitionTx struct {
	tx       pgx.Tx
	sourceID int64
}

func (t *partitionTx) ListURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := t.tx.Query(ctx, `SELECT url FROM hot_items WHERE source_id = $1`, t.sourceID)
	if err != nil {
		return nil, fmt.Errorf("list partition urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list partition urls: %w", err)
	}
	return urls, nil
}

func (t *partitionTx) UpdateItem(ctx context.Context, url string, rank int, score int64, commentCount int, crawledAt time.Time) error {
	const query = `
UPDATE hot_items
SET rank = $1, score = $2, comment_count = $3, crawled_at = $4
WHERE source_id = $5 AND url = $6`
	tag, err := t.tx.Exec(ctx, query, rank, score, commentCount, crawledAt, t.sourceID, url)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update item: no row for url %q", url)
	}
	return nil
}

func (t *partitionTx) InsertItem(ctx context.Context, item hotlist.StoredItem) error {
	const query = `
INSERT INTO hot_items (
	source_id, source_key, title, url, rank, score, comment_count,
	description, author, image_url, tags, published_at, crawled_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := t.tx.Exec(ctx, query,
		t.sourceID, item.SourceKey, item.Title, item.URL, item.Rank, item.Score,
		item.CommentCount, item.Description, item.Author, item.ImageURL, tags,
		item.PublishedAt, item.CrawledAt, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// Trim keeps the newest rows of the partition, ordered by crawl time
// then rank, and deletes the rest.
func (t *partitionTx) Trim(ctx context.Context, keep int) (int64, error) {
	const query = `
DELETE FROM hot_items
WHERE source_id = $1 AND id NOT IN (
	SELECT id FROM hot_items
	WHERE source_id = $1
	ORDER BY crawled_at DESC, rank ASC
	LIMIT $2
)`
	tag, err := t.tx.Exec(ctx, query, t.sourceID, keep)
	if err != nil {
		return 0, fmt.Errorf("trim partition: %w", err)
	}
	return tag.RowsAffected(), nil
}
