package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

const (
	DefaultRecentKey   = "recent_notifications"
	DefaultRecentLimit = 10
)

// RecentView keeps the newest notifications in a sorted set scored by
// creation time in epoch milliseconds.
type RecentView struct {
	client redis.Cmdable
	key    string
	limit  int
}

var _ domain.RecentView = (*RecentView)(nil)

func NewRecentView(client redis.Cmdable, key string, limit int) *RecentView {
	if key == "" {
		key = DefaultRecentKey
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentView{client: client, key: key, limit: limit}
}

func (v *RecentView) Key() string { return v.key }

func (v *RecentView) Limit() int { return v.limit }

// ReadAll returns the view newest first. Members that fail to decode are
// skipped; the next recompute replaces them.
func (v *RecentView) ReadAll(ctx context.Context) ([]*domain.Notification, error) {
	members, err := v.client.ZRevRange(ctx, v.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]*domain.Notification, 0, len(members))
	for _, m := range members {
		n, err := decode([]byte(m))
		if err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	// ZREVRANGE breaks score ties by member bytes
	newestFirst(notifications)
	return notifications, nil
}

// ReplaceAll swaps the whole view for the top entries of ns in one MULTI/EXEC.
func (v *RecentView) ReplaceAll(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	ordered := make([]*domain.Notification, len(ns))
	copy(ordered, ns)
	newestFirst(ordered)
	if len(ordered) > v.limit {
		ordered = ordered[:v.limit]
	}

	members := make([]redis.Z, 0, len(ordered))
	for _, n := range ordered {
		data, err := encode(n)
		if err != nil {
			return err
		}
		members = append(members, redis.Z{Score: n.Score(), Member: data})
	}

	_, err := v.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, v.key)
		pipe.ZAdd(ctx, v.key, members...)
		pipe.ZRemRangeByRank(ctx, v.key, 0, int64(-(v.limit + 1)))
		return nil
	})
	return err
}

func (v *RecentView) Clear(ctx context.Context) error {
	return v.client.Del(ctx, v.key).Err()
}
