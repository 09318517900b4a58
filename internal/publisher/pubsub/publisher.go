// Package pubsub implements a Google Cloud Pub/Sub ingest report publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"hotboard/internal/hotlist"
)

// Publisher pushes ingest reports to a Pub/Sub topic so downstream
// consumers (feed rebuilders, alerting) can react to fresh data.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New connects a client and binds the topic.
func New(ctx context.Context, projectID, topicID string) (*Publisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	return &Publisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// PublishReport marshals the report to JSON and publishes it. The call
// blocks until the server acknowledges the message.
func (p *Publisher) PublishReport(ctx context.Context, report hotlist.IngestReport) error {
	if p == nil || p.topic == nil {
		return fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"inserted":   strconv.Itoa(report.TotalInserted()),
			"updated":    strconv.Itoa(report.TotalUpdated()),
			"partitions": strconv.Itoa(len(report.Partitions)),
		},
	}
	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	p.topic.Stop()
	return p.client.Close()
}
