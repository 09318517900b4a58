// Package ingest merges crawl results into persistent per-partition
// storage: dedup by URL, upsert, retention trim.
package ingest

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"hotboard/internal/hotlist"
	"hotboard/internal/metrics"
)

// Engine resolves a CrawlResult against the store. It is the only
// writer of stored items; each partition merge runs in its own
// transaction so one bad partition cannot poison the rest of a pass.
type Engine struct {
	store  hotlist.Store
	clock  hotlist.Clock
	logger *zap.Logger
}

// New builds an Engine.
func New(store hotlist.Store, clock hotlist.Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		clock:  clock,
		logger: logger.Named("ingest"),
	}
}

// Ingest merges every non-empty adapter result into its partition and
// reports per-partition row counts. Adapter errors are carried into the
// report; an empty item list leaves its partition untouched.
func (e *Engine) Ingest(ctx context.Context, result hotlist.CrawlResult) hotlist.IngestReport {
	report := hotlist.IngestReport{
		StartedAt:    e.clock.Now(),
		Partitions:   make(map[string]hotlist.PartitionReport),
		SourceErrors: make(map[string]string),
	}

	for key, res := range result {
		if res.Err != nil {
			report.SourceErrors[key] = res.Err.Error()
			continue
		}
		if len(res.Items) == 0 {
			e.logger.Info("empty crawl, partition untouched",
				zap.String("adapter", key),
				zap.String("partition", res.Source.PartitionKey()),
			)
			continue
		}
		pr := e.mergePartition(ctx, res.Source, res.Items)
		report.Partitions[res.Source.PartitionKey()] = pr
	}

	report.FinishedAt = e.clock.Now()
	metrics.ObserveIngestDuration(report.FinishedAt.Sub(report.StartedAt).Seconds())
	e.logger.Info("ingestion pass finished",
		zap.Int("partitions", len(report.Partitions)),
		zap.Int("inserted", report.TotalInserted()),
		zap.Int("updated", report.TotalUpdated()),
		zap.Int("source_errors", len(report.SourceErrors)),
	)
	return report
}

func (e *Engine) mergePartition(ctx context.Context, src hotlist.Source, items []hotlist.RawItem) hotlist.PartitionReport {
	partition := src.PartitionKey()
	pr := hotlist.PartitionReport{Source: src}

	sourceID, err := e.store.GetOrCreateSource(ctx, src)
	if err != nil {
		pr.Error = err.Error()
		metrics.ObservePartitionError(partition)
		e.logger.Error("resolve partition failed", zap.String("partition", partition), zap.Error(err))
		return pr
	}

	crawledAt := e.clock.Now()
	var inserted, updated int
	var evicted int64

	err = e.store.MergePartition(ctx, sourceID, func(tx hotlist.PartitionTx) error {
		existing, err := tx.ListURLs(ctx)
		if err != nil {
			return err
		}

		dropped, batchDups := 0, 0
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			if item.URL == "" {
				// Cannot be deduplicated or linked; drop before merge.
				dropped++
				continue
			}
			if _, dup := seen[item.URL]; dup {
				batchDups++
				continue
			}
			seen[item.URL] = struct{}{}

			if _, ok := existing[item.URL]; ok {
				// Descriptive fields are first-write-wins; only the
				// volatile ranking fields move on an update.
				if err := tx.UpdateItem(ctx, item.URL, item.Rank, parseScore(item.HeatValue), item.CommentCount, crawledAt); err != nil {
					return err
				}
				updated++
				continue
			}

			if err := tx.InsertItem(ctx, hotlist.StoredItem{
				SourceID:     sourceID,
				SourceKey:    item.SourceKey,
				Title:        item.Title,
				URL:          item.URL,
				Rank:         item.Rank,
				Score:        parseScore(item.HeatValue),
				CommentCount: item.CommentCount,
				Description:  item.Description,
				Author:       item.Author,
				ImageURL:     item.ImageURL,
				Tags:         item.Tags,
				PublishedAt:  item.PublishedAt,
				CrawledAt:    crawledAt,
				CreatedAt:    crawledAt,
			}); err != nil {
				return err
			}
			inserted++
		}

		if dropped > 0 || batchDups > 0 {
			e.logger.Warn("records dropped before merge",
				zap.String("partition", partition),
				zap.Int("empty_url", dropped),
				zap.Int("batch_duplicates", batchDups),
			)
		}

		evicted, err = tx.Trim(ctx, hotlist.MaxItemsPerPartition)
		return err
	})
	if err != nil {
		// The whole partition rolled back; none of the counts took.
		pr.Error = err.Error()
		metrics.ObservePartitionError(partition)
		e.logger.Error("partition merge failed", zap.String("partition", partition), zap.Error(err))
		return pr
	}

	pr.Inserted = inserted
	pr.Updated = updated
	pr.Evicted = int(evicted)
	metrics.ObserveIngest(partition, pr.Inserted, pr.Updated, pr.Evicted)
	e.logger.Info("partition merged",
		zap.String("partition", partition),
		zap.Int("inserted", pr.Inserted),
		zap.Int("updated", pr.Updated),
		zap.Int("evicted", pr.Evicted),
	)
	return pr
}

// parseScore converts a free-form heat value to an integer score.
// Anything that is not purely numeric scores 0.
func parseScore(heat string) int64 {
	if heat == "" {
		return 0
	}
	for _, r := range heat {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(heat, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
