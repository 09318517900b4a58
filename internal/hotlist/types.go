// Package hotlist defines core types shared across subsystems.
package hotlist

import (
	"time"
)

// MaxItemsPerPartition is the retention bound: after every ingestion
// pass a (source, category) partition keeps at most this many rows.
const MaxItemsPerPartition = 30

// Source identifies one logical feed. A (Name, Category) pair uniquely
// owns a partition of stored items.
type Source struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	DisplayName string `json:"display_name"`
}

// PartitionKey is the stable "name/category" identifier used in reports
// and log lines.
func (s Source) PartitionKey() string {
	return s.Name + "/" + s.Category
}

// RawItem is one scraped record before persistence. Produced by an
// adapter, consumed by the ingestion engine, never stored as-is.
type RawItem struct {
	SourceKey    string     `json:"source_key"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Rank         int        `json:"rank"`
	HeatValue    string     `json:"heat_value,omitempty"`
	Author       string     `json:"author,omitempty"`
	CommentCount int        `json:"comment_count,omitempty"`
	Description  string     `json:"description,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

// StoredItem is the persisted, deduplicated record. Within a partition
// URL is unique.
type StoredItem struct {
	ID           int64      `json:"id"`
	SourceID     int64      `json:"source_id"`
	SourceKey    string     `json:"source_key,omitempty"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Rank         int        `json:"rank"`
	Score        int64      `json:"score"`
	CommentCount int        `json:"comment_count"`
	Description  string     `json:"description,omitempty"`
	Author       string     `json:"author,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CrawledAt    time.Time  `json:"crawled_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AdapterResult is what one adapter contributed to a crawl pass:
// either a list of items or a captured error, never both.
type AdapterResult struct {
	Source Source
	Items  []RawItem
	Err    error
}

// CrawlResult maps adapter key to that adapter's outcome for one pass.
// It lives only between the orchestrator and the ingestion engine.
type CrawlResult map[string]AdapterResult

// PartitionReport carries the row counts for one partition merge.
type PartitionReport struct {
	Source   Source `json:"source"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Evicted  int    `json:"evicted"`
	Error    string `json:"error,omitempty"`
}

// IngestReport summarizes one full ingestion pass.
type IngestReport struct {
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Partitions map[string]PartitionReport `json:"partitions"`
	// SourceErrors records adapters that yielded nothing this pass,
	// keyed by adapter key.
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}

// TotalInserted sums inserted rows across partitions.
func (r IngestReport) TotalInserted() int {
	n := 0
	for _, p := range r.Partitions {
		n += p.Inserted
	}
	return n
}

// TotalUpdated sums updated rows across partitions.
func (r IngestReport) TotalUpdated() int {
	n := 0
	for _, p := range r.Partitions {
		n += p.Updated
	}
	return n
}
