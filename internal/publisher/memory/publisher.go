// Package memory contains an in-memory publisher implementation for tests.
package memory

import (
	"context"
	"sync"

	"hotboard/internal/hotlist"
)

// Publisher records published reports for inspection.
type Publisher struct {
	mu      sync.RWMutex
	reports []hotlist.IngestReport
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// PublishReport records the report.
func (p *Publisher) PublishReport(_ context.Context, report hotlist.IngestReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return nil
}

// Reports returns the recorded publishes.
func (p *Publisher) Reports() []hotlist.IngestReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]hotlist.IngestReport, len(p.reports))
	copy(out, p.reports)
	return out
}

// Close is a no-op for the in-memory publisher.
func (p *Publisher) Close() error { return nil }
