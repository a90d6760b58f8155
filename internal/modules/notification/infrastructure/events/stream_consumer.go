package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

// Handler processes one event. A non-nil error leaves the message pending
// in the consumer group so it is delivered again.
type Handler func(ctx context.Context, event domain.Event) error

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	Count    int64
	Block    time.Duration
}

type StreamConsumer struct {
	client  redis.Cmdable
	cfg     ConsumerConfig
	handler Handler
	logger  *slog.Logger
}

func NewStreamConsumer(client redis.Cmdable, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *StreamConsumer {
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.Consumer == "" {
		host, _ := os.Hostname()
		cfg.Consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &StreamConsumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "stream_consumer", "stream", cfg.Stream, "group", cfg.Group),
	}
}

// EnsureGroup creates the consumer group (and the stream) when missing.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Run reads until ctx is cancelled.
func (c *StreamConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	c.logger.Info("consumer started", "consumer", c.cfg.Consumer)

	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return nil
		}
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("stream read failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// Poll performs one XREADGROUP round and returns how many messages were acknowledged.
func (c *StreamConsumer) Poll(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if c.process(ctx, msg) {
				if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
					c.logger.Warn("ack failed", "message_id", msg.ID, "error", err)
					continue
				}
				acked++
			}
		}
	}
	return acked, nil
}

func (c *StreamConsumer) process(ctx context.Context, msg redis.XMessage) bool {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Warn("dropping message without payload", "message_id", msg.ID)
		return true
	}

	var event domain.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Warn("dropping undecodable message", "message_id", msg.ID, "error", err)
		return true
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Error("failed to process message", "message_id", msg.ID, "error", err)
		return false
	}
	return true
}

// LogHandler records each event by message type. Delivery to real email or
// SMS gateways plugs in here.
func LogHandler(logger *slog.Logger) Handler {
	return func(_ context.Context, e domain.Event) error {
		switch e.MessageType {
		case domain.MessageTypeCreate:
			logger.Info("processing CREATE notification", "id", e.NotificationID, "type", e.NotificationType, "recipient", e.Recipient)
		case domain.MessageTypeUpdate:
			logger.Info("processing UPDATE notification", "id", e.NotificationID, "subject", e.Subject)
		case domain.MessageTypeDelete:
			logger.Info("processing DELETE notification", "id", e.NotificationID)
		default:
			logger.Warn("unknown message type", "type", e.MessageType, "id", e.NotificationID)
		}
		return nil
	}
}
