package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

const (
	DefaultKeyPrefix = "notification:"
	DefaultEntityTTL = 10 * time.Minute
)

// EntityCache stores one msgpack snapshot per notification under <prefix><id>.
type EntityCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ domain.EntityCache = (*EntityCache)(nil)

func NewEntityCache(client redis.Cmdable, prefix string, ttl time.Duration) *EntityCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultEntityTTL
	}
	return &EntityCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *EntityCache) Key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

// Get returns (nil, nil) on a miss. A snapshot that cannot be decoded is
// deleted and reported as an error so the caller falls through to the store.
func (c *EntityCache) Get(ctx context.Context, id int64) (*domain.Notification, error) {
	key := c.Key(id)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	n, err := decode(data)
	if err != nil {
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			return nil, errors.Join(err, fmt.Errorf("drop corrupt snapshot %s: %w", key, delErr))
		}
		return nil, err
	}
	return n, nil
}

// Put overwrites the snapshot and resets its TTL.
func (c *EntityCache) Put(ctx context.Context, n *domain.Notification) error {
	data, err := encode(n)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(n.ID), data, c.ttl).Err()
}

func (c *EntityCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, c.Key(id)).Err()
}
