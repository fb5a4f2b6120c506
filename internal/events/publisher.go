package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"imonitor/internal/config"
)

// Channel is the Redis pub/sub channel carrying node lifecycle events.
const Channel = "imonitor:events"

// Event types published to the channel.
const (
	EventNodeReserved = "node.reserved"
	EventNodeReport   = "node.report"
	EventNodeDeleted  = "node.deleted"
)

// Event is the wire shape of a published node lifecycle event.
type Event struct {
	Type     string `json:"type"`
	NodeID   string `json:"node_id"`
	Hostname string `json:"hostname,omitempty"`
	At       int64  `json:"at"`
}

// Publisher broadcasts node lifecycle events over Redis pub/sub so live
// dashboards can follow fleet changes without polling. A nil Publisher is
// valid and drops every event, so callers never need to branch on whether
// Redis is configured.
type Publisher struct {
	rdb    *redis.Client
	logger *logrus.Entry
}

// NewPublisher connects to Redis and returns a publisher. Returns (nil, nil)
// when no Redis address is configured; publishing is then a no-op.
func NewPublisher(cfg config.RedisConfig, logger *logrus.Entry) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Publisher{
		rdb:    rdb,
		logger: logger.WithField("component", "event-publisher"),
	}, nil
}

// Publish broadcasts one event. Failures are logged and swallowed; event
// delivery never affects the request that triggered it.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorf("Failed to marshal event: %v", err)
		return
	}

	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		p.logger.Warnf("Failed to publish %s event: %v", ev.Type, err)
	}
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
