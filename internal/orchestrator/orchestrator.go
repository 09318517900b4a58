// Package orchestrator fans one crawl pass out over every registered
// adapter with full failure isolation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"hotboard/internal/hotlist"
	"hotboard/internal/metrics"
)

// ErrUnknownAdapter is returned by RunOne for unregistered keys.
var ErrUnknownAdapter = errors.New("unknown adapter")

// Orchestrator runs registered adapters concurrently and aggregates
// per-adapter results or errors. Adapters never share state; a panic or
// timeout in one is recorded against that key only.
type Orchestrator struct {
	adapters       map[string]hotlist.Adapter
	adapterTimeout time.Duration
	logger         *zap.Logger
}

// New builds an Orchestrator over a fixed adapter set.
func New(adapters map[string]hotlist.Adapter, adapterTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	if adapterTimeout <= 0 {
		adapterTimeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		adapters:       adapters,
		adapterTimeout: adapterTimeout,
		logger:         logger.Named("orchestrator"),
	}
}

// Keys returns the registered adapter keys.
func (o *Orchestrator) Keys() []string {
	keys := make([]string, 0, len(o.adapters))
	for k := range o.adapters {
		keys = append(keys, k)
	}
	return keys
}

// RunAll crawls every adapter concurrently and returns once each has
// either produced items or failed. No adapter can delay the others
// beyond the shared per-adapter timeout.
func (o *Orchestrator) RunAll(ctx context.Context) hotlist.CrawlResult {
	result := make(hotlist.CrawlResult, len(o.adapters))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for key, adapter := range o.adapters {
		wg.Add(1)
		go func(key string, adapter hotlist.Adapter) {
			defer wg.Done()
			res := o.runAdapter(ctx, key, adapter)
			mu.Lock()
			result[key] = res
			mu.Unlock()
		}(key, adapter)
	}
	wg.Wait()

	return result
}

// RunOne crawls a single adapter outside the regular pass.
func (o *Orchestrator) RunOne(ctx context.Context, key string) ([]hotlist.RawItem, error) {
	adapter, ok := o.adapters[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, key)
	}
	res := o.runAdapter(ctx, key, adapter)
	return res.Items, res.Err
}

// ResultFor wraps one adapter's output as a single-entry CrawlResult so
// manual triggers flow through the same ingestion path.
func (o *Orchestrator) ResultFor(key string, items []hotlist.RawItem, err error) (hotlist.CrawlResult, bool) {
	adapter, ok := o.adapters[key]
	if !ok {
		return nil, false
	}
	return hotlist.CrawlResult{
		key: {Source: adapter.Source(), Items: items, Err: err},
	}, true
}

func (o *Orchestrator) runAdapter(ctx context.Context, key string, adapter hotlist.Adapter) hotlist.AdapterResult {
	runCtx, cancel := context.WithTimeout(ctx, o.adapterTimeout)
	defer cancel()

	metrics.IncActiveCrawls()
	defer metrics.DecActiveCrawls()

	start := time.Now()
	items, err := o.crawlSafely(runCtx, key, adapter)

	res := hotlist.AdapterResult{Source: adapter.Source()}
	switch {
	case err != nil:
		res.Err = err
		metrics.ObserveCrawl(key, "error", 0)
		o.logger.Error("adapter failed",
			zap.String("adapter", key),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	default:
		res.Items = items
		metrics.ObserveCrawl(key, "ok", len(items))
		o.logger.Info("adapter finished",
			zap.String("adapter", key),
			zap.Int("items", len(items)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return res
}

// crawlSafely contains adapter panics: an escaping panic is a bug in
// the adapter, recorded as its failure for the pass.
func (o *Orchestrator) crawlSafely(ctx context.Context, key string, adapter hotlist.Adapter) (items []hotlist.RawItem, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			items = nil
			err = fmt.Errorf("adapter %s panicked: %v", key, rec)
		}
	}()
	return adapter.Crawl(ctx)
}
