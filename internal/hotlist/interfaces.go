package hotlist

import (
	"context"
	"time"
)

// Adapter is the contract every source must satisfy. Crawl returns a
// possibly-empty list; adapters handle their own fallbacks and skip
// malformed records instead of failing the whole pass.
type Adapter interface {
	Source() Source
	Crawl(ctx context.Context) ([]RawItem, error)
}

// Store persists sources and their retained items. MergePartition runs
// fn inside one transaction scoped to a single partition; a returned
// error rolls back that partition only.
type Store interface {
	GetOrCreateSource(ctx context.Context, src Source) (int64, error)
	MergePartition(ctx context.Context, sourceID int64, fn func(tx PartitionTx) error) error
	ListItems(ctx context.Context, sourceName, categoryName string) ([]StoredItem, time.Time, error)
	EvictStale(ctx context.Context, olderThan time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// PartitionTx exposes the per-partition operations available inside a
// MergePartition transaction.
type PartitionTx interface {
	ListURLs(ctx context.Context) (map[string]struct{}, error)
	UpdateItem(ctx context.Context, url string, rank int, score int64, commentCount int, crawledAt time.Time) error
	InsertItem(ctx context.Context, item StoredItem) error
	// Trim deletes all but the newest keep rows ordered by
	// (crawled_at desc, rank asc) and returns the number removed.
	Trim(ctx context.Context, keep int) (int64, error)
}

// Cache is the fronting cache collaborator. The pipeline only ever
// deletes from it; reads belong to the API layer.
type Cache interface {
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	EnsureTTL(ctx context.Context, pattern string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Publisher pushes ingest reports to interested consumers.
type Publisher interface {
	PublishReport(ctx context.Context, report IngestReport) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
