package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

const DefaultMaxLen = 10000

// StreamPublisher appends events to a Redis stream named after the topic.
type StreamPublisher struct {
	client redis.Cmdable
	maxLen int64
}

var _ domain.EventSink = (*StreamPublisher)(nil)

func NewStreamPublisher(client redis.Cmdable, maxLen int64) *StreamPublisher {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &StreamPublisher{client: client, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, topic string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// MAXLEN ~ keeps the stream bounded without exact trimming on every add
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Approx: true,
		MaxLen: p.maxLen,
		Values: map[string]interface{}{
			"type":    string(event.MessageType),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", topic, err)
	}
	return nil
}
