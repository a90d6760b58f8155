package domain

import (
	"context"
	"time"
)

// NotificationRepository is the durable source of truth.
// Finders return (nil, nil) when the row does not exist.
type NotificationRepository interface {
	Save(ctx context.Context, notification *Notification) error
	FindByID(ctx context.Context, id int64) (*Notification, error)
	// FindAndLockByID holds a row lock until the ambient transaction ends.
	FindAndLockByID(ctx context.Context, id int64) (*Notification, error)
	FindTopNByCreatedAtDesc(ctx context.Context, n int) ([]*Notification, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// EntityCache holds single-notification snapshots.
type EntityCache interface {
	Get(ctx context.Context, id int64) (*Notification, error)
	Put(ctx context.Context, notification *Notification) error
	Invalidate(ctx context.Context, id int64) error
}

// RecentView is the bounded, newest-first derived list.
type RecentView interface {
	ReadAll(ctx context.Context) ([]*Notification, error)
	ReplaceAll(ctx context.Context, notifications []*Notification) error
	Clear(ctx context.Context) error
}

// Lock is an admission gate for expensive recomputation.
type Lock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventSink publishes decided state changes.
type EventSink interface {
	Publish(ctx context.Context, topic string, event Event) error
}
