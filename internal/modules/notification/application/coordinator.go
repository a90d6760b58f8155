package application

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRecentLimit = 10
	DefaultLockTTL     = 30 * time.Second
	DefaultBackoff     = 100 * time.Millisecond
	DefaultLockKey     = "recent_notifications:getRecentNotifications:lock"
)

type CoordinatorConfig struct {
	RecentLimit int
	LockTTL     time.Duration
	Backoff     time.Duration
	LockKey     string
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.RecentLimit <= 0 {
		c.RecentLimit = DefaultRecentLimit
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.LockKey == "" {
		c.LockKey = DefaultLockKey
	}
	return c
}

// CacheCoordinator serves reads from the cache where it can and from the
// store where it must. Cache and lock failures only cost latency.
type CacheCoordinator struct {
	repo     domain.NotificationRepository
	entities domain.EntityCache
	recent   domain.RecentView
	lock     domain.Lock
	cfg      CoordinatorConfig
	logger   *slog.Logger
	group    singleflight.Group
}

func NewCacheCoordinator(
	repo domain.NotificationRepository,
	entities domain.EntityCache,
	recent domain.RecentView,
	lock domain.Lock,
	cfg CoordinatorConfig,
	logger *slog.Logger,
) *CacheCoordinator {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &CacheCoordinator{
		repo:     repo,
		entities: entities,
		recent:   recent,
		lock:     lock,
		cfg:      cfg.withDefaults(),
		logger:   logger.With("component", "cache_coordinator"),
	}
}

func (c *CacheCoordinator) Config() CoordinatorConfig {
	return c.cfg
}

func (c *CacheCoordinator) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	n, _, err := c.Lookup(ctx, id)
	return n, err
}

// Lookup is GetByID that also reports whether the entity cache answered.
// A missing notification is (nil, false, nil).
func (c *CacheCoordinator) Lookup(ctx context.Context, id int64) (*domain.Notification, bool, error) {
	cached, err := c.entities.Get(ctx, id)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues("entity", "error").Inc()
		c.logger.Warn("entity cache read failed", "id", id, "error", err)
	case cached != nil:
		cacheLookups.WithLabelValues("entity", "hit").Inc()
		return cached, true, nil
	default:
		cacheLookups.WithLabelValues("entity", "miss").Inc()
	}

	// The flight outlives any one caller; each caller stops waiting on its own ctx.
	flight := c.group.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		n, err := c.repo.FindByID(fctx, id)
		if err != nil || n == nil {
			return n, err
		}
		if err := c.entities.Put(fctx, n); err != nil {
			c.logger.Warn("entity cache read-repair failed", "id", id, "error", err)
		}
		return n, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	if res.Err != nil {
		return nil, false, res.Err
	}

	n, _ := res.Val.(*domain.Notification)
	if n == nil {
		return nil, false, nil
	}
	// callers sharing one flight must not share one pointer
	cp := *n
	return &cp, false, nil
}

// GetRecent returns up to RecentLimit notifications, newest first. On a cold
// view only the lock holder queries the store; everyone else waits one
// backoff and takes whatever the view holds by then.
func (c *CacheCoordinator) GetRecent(ctx context.Context) ([]*domain.Notification, error) {
	cached, err := c.recent.ReadAll(ctx)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues("recent", "error").Inc()
		c.logger.Warn("recent view read failed", "error", err)
	case len(cached) > 0:
		cacheLookups.WithLabelValues("recent", "hit").Inc()
		return cached, nil
	default:
		cacheLookups.WithLabelValues("recent", "miss").Inc()
	}

	acquired, err := c.lock.Acquire(ctx, c.cfg.LockKey, c.cfg.LockTTL)
	if err != nil {
		lockAttempts.WithLabelValues("error").Inc()
		c.logger.Warn("recent lock unavailable, querying store directly", "error", err)
		return c.fetchRecent(ctx)
	}
	if !acquired {
		lockAttempts.WithLabelValues("contended").Inc()
		return c.awaitRecent(ctx), nil
	}

	lockAttempts.WithLabelValues("acquired").Inc()
	return c.recomputeRecent(ctx)
}

func (c *CacheCoordinator) recomputeRecent(ctx context.Context) ([]*domain.Notification, error) {
	defer func() {
		if err := c.lock.Release(context.WithoutCancel(ctx), c.cfg.LockKey); err != nil {
			c.logger.Warn("recent lock release failed", "key", c.cfg.LockKey, "error", err)
		}
	}()

	if cached, err := c.recent.ReadAll(ctx); err == nil && len(cached) > 0 {
		return cached, nil
	}

	ns, err := c.fetchRecent(ctx)
	if err != nil {
		return nil, err
	}
	recentRecomputes.Inc()

	if len(ns) > 0 {
		if err := c.recent.ReplaceAll(ctx, ns); err != nil {
			c.logger.Warn("recent view refresh failed", "error", err)
		}
	}
	return ns, nil
}

// awaitRecent never touches the store. A cancelled context cuts the wait
// short and the view is read immediately.
func (c *CacheCoordinator) awaitRecent(ctx context.Context) []*domain.Notification {
	timer := time.NewTimer(c.cfg.Backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	cached, err := c.recent.ReadAll(context.WithoutCancel(ctx))
	if err != nil {
		c.logger.Warn("recent view re-read failed", "error", err)
		return []*domain.Notification{}
	}
	if cached == nil {
		return []*domain.Notification{}
	}
	return cached
}

func (c *CacheCoordinator) fetchRecent(ctx context.Context) ([]*domain.Notification, error) {
	ns, err := c.repo.FindTopNByCreatedAtDesc(ctx, c.cfg.RecentLimit)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []*domain.Notification{}
	}
	return ns, nil
}
