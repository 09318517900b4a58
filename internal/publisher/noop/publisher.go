// Package noop provides a publisher used when no broker is configured.
package noop

import (
	"context"

	"hotboard/internal/hotlist"
)

// Publisher discards every report.
type Publisher struct{}

// New returns a no-op Publisher.
func New() Publisher { return Publisher{} }

// PublishReport discards the report.
func (Publisher) PublishReport(context.Context, hotlist.IngestReport) error { return nil }

// Close is a no-op.
func (Publisher) Close() error { return nil }
