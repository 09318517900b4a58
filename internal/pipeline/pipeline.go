// Package pipeline composes one full crawl pass: fan-out, ingestion,
// cache invalidation and report publishing.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"hotboard/internal/hotlist"
)

// Crawler fans crawl passes out over the registered adapters.
type Crawler interface {
	RunAll(ctx context.Context) hotlist.CrawlResult
	RunOne(ctx context.Context, key string) ([]hotlist.RawItem, error)
	ResultFor(key string, items []hotlist.RawItem, err error) (hotlist.CrawlResult, bool)
	Keys() []string
}

// Ingestor merges crawl results into storage.
type Ingestor interface {
	Ingest(ctx context.Context, result hotlist.CrawlResult) hotlist.IngestReport
}

// Invalidator drops derived cache entries after a pass that wrote rows.
type Invalidator interface {
	InvalidateAfterIngest(ctx context.Context, report hotlist.IngestReport)
}

// Pipeline is the single entry point for crawl passes, shared by the
// scheduler and the ops API so both paths behave identically.
type Pipeline struct {
	crawler     Crawler
	ingestor    Ingestor
	invalidator Invalidator
	publisher   hotlist.Publisher
	logger      *zap.Logger
}

// New builds a Pipeline.
func New(crawler Crawler, ingestor Ingestor, invalidator Invalidator, publisher hotlist.Publisher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		crawler:     crawler,
		ingestor:    ingestor,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      logger.Named("pipeline"),
	}
}

// Keys lists the registered adapter keys.
func (p *Pipeline) Keys() []string {
	return p.crawler.Keys()
}

// RunAll crawls every adapter and runs the full ingest/invalidate/
// publish tail.
func (p *Pipeline) RunAll(ctx context.Context) hotlist.IngestReport {
	return p.finish(ctx, p.crawler.RunAll(ctx))
}

// RunAdapter crawls a single adapter and runs the same tail, so manual
// triggers stay consistent with scheduled passes. The adapter's own
// crawl error is carried inside the report, not returned; the error
// return covers unknown keys only.
func (p *Pipeline) RunAdapter(ctx context.Context, key string) (hotlist.IngestReport, error) {
	items, err := p.crawler.RunOne(ctx, key)
	result, ok := p.crawler.ResultFor(key, items, err)
	if !ok {
		return hotlist.IngestReport{}, err
	}
	return p.finish(ctx, result), nil
}

func (p *Pipeline) finish(ctx context.Context, result hotlist.CrawlResult) hotlist.IngestReport {
	report := p.ingestor.Ingest(ctx, result)
	p.invalidator.InvalidateAfterIngest(ctx, report)
	if p.publisher != nil {
		if err := p.publisher.PublishReport(ctx, report); err != nil {
			p.logger.Warn("report publish failed", zap.Error(err))
		}
	}
	return report
}
