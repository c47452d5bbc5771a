package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iho/folio/internal/domain"
)

// RecalculationPublisher forwards recalculation requests to other processes
// over Redis Pub/Sub. PUBLISH reaches only the clients subscribed at that
// moment, so delivery stays at-most-once.
type RecalculationPublisher struct {
	client  *redis.Client
	channel string
}

// NewRecalculationPublisher creates a publisher for channel.
func NewRecalculationPublisher(client *redis.Client, channel string) *RecalculationPublisher {
	return &RecalculationPublisher{client: client, channel: channel}
}

// Name identifies the publisher in logs and metrics.
func (p *RecalculationPublisher) Name() string {
	return "redis"
}

// Publish sends req as JSON.
func (p *RecalculationPublisher) Publish(ctx context.Context, req domain.RecalculationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal recalculation request: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	return nil
}
