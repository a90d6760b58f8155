package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

// Lock is a SET NX PX admission gate. Release does not check ownership;
// the TTL bounds how long a lost holder can block others.
type Lock struct {
	client    redis.Cmdable
	namespace string
}

var _ domain.Lock = (*Lock)(nil)

func NewLock(client redis.Cmdable, namespace string) *Lock {
	if namespace == "" {
		namespace = DefaultRecentKey
	}
	return &Lock{client: client, namespace: namespace}
}

// Key names the lock guarding operation, e.g. recent_notifications:getRecentNotifications:lock.
func (l *Lock) Key(operation string) string {
	return l.namespace + ":" + operation + ":lock"
}

func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, uuid.NewString(), ttl).Result()
}

func (l *Lock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
