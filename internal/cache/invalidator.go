package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hotboard/internal/hotlist"
)

// invalidationPatterns cover every read-side key family derived from
// stored hot items. Fresh data lands in Postgres first; dropping these
// keys forces the next read to rebuild from it.
var invalidationPatterns = []string{
	"hot_list:*",
	"hot_items:*",
	"platforms:*",
	"categories:*",
}

// Invalidator drops derived cache entries after ingestion. Failures are
// logged and swallowed: a stale cache entry expires on its own, while a
// failed ingest pass would lose data.
type Invalidator struct {
	cache  hotlist.Cache
	logger *zap.Logger
}

// NewInvalidator builds an Invalidator.
func NewInvalidator(cache hotlist.Cache, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: cache, logger: logger.Named("cache")}
}

// InvalidateAfterIngest drops every derived key family when the pass
// changed at least one row. A pass that wrote nothing leaves the cache
// alone.
func (i *Invalidator) InvalidateAfterIngest(ctx context.Context, report hotlist.IngestReport) {
	if i.cache == nil {
		return
	}
	if report.TotalInserted() == 0 && report.TotalUpdated() == 0 {
		return
	}
	var dropped int64
	for _, pattern := range invalidationPatterns {
		n, err := i.cache.DeleteByPattern(ctx, pattern)
		if err != nil {
			i.logger.Warn("cache invalidation failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
			continue
		}
		dropped += n
	}
	i.logger.Info("cache invalidated", zap.Int64("keys_dropped", dropped))
}

// SweepTTL attaches a fallback TTL to derived keys that were written
// without one, so orphaned entries cannot outlive the data they mirror.
func (i *Invalidator) SweepTTL(ctx context.Context, ttl time.Duration) {
	if i.cache == nil {
		return
	}
	var fixed int64
	for _, pattern := range invalidationPatterns {
		n, err := i.cache.EnsureTTL(ctx, pattern, ttl)
		if err != nil {
			i.logger.Warn("ttl sweep failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
			continue
		}
		fixed += n
	}
	if fixed > 0 {
		i.logger.Info("ttl sweep attached expiries", zap.Int64("keys", fixed))
	}
}
