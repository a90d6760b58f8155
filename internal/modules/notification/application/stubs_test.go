package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/cache"
	"github.com/saransh1220/notification-service/internal/shared/infrastructure/txn"
)

type repoStub struct {
	saveFn        func(context.Context, *domain.Notification) error
	findByIDFn    func(context.Context, int64) (*domain.Notification, error)
	findAndLockFn func(context.Context, int64) (*domain.Notification, error)
	topNFn        func(context.Context, int) ([]*domain.Notification, error)
	deleteByIDFn  func(context.Context, int64) error
	existsByIDFn  func(context.Context, int64) (bool, error)
}

func (r *repoStub) Save(ctx context.Context, n *domain.Notification) error {
	if r.saveFn == nil {
		return nil
	}
	return r.saveFn(ctx, n)
}

func (r *repoStub) FindByID(ctx context.Context, id int64) (*domain.Notification, error) {
	if r.findByIDFn == nil {
		return nil, nil
	}
	return r.findByIDFn(ctx, id)
}

func (r *repoStub) FindAndLockByID(ctx context.Context, id int64) (*domain.Notification, error) {
	if r.findAndLockFn == nil {
		return nil, nil
	}
	return r.findAndLockFn(ctx, id)
}

func (r *repoStub) FindTopNByCreatedAtDesc(ctx context.Context, n int) ([]*domain.Notification, error) {
	if r.topNFn == nil {
		return nil, nil
	}
	return r.topNFn(ctx, n)
}

func (r *repoStub) DeleteByID(ctx context.Context, id int64) error {
	if r.deleteByIDFn == nil {
		return nil
	}
	return r.deleteByIDFn(ctx, id)
}

func (r *repoStub) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if r.existsByIDFn == nil {
		return false, nil
	}
	return r.existsByIDFn(ctx, id)
}

type lockStub struct {
	acquireFn func(context.Context, string, time.Duration) (bool, error)
	releaseFn func(context.Context, string) error
}

func (l lockStub) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.acquireFn(ctx, key, ttl)
}

func (l lockStub) Release(ctx context.Context, key string) error {
	if l.releaseFn == nil {
		return nil
	}
	return l.releaseFn(ctx, key)
}

type recentStub struct {
	readAllFn    func(context.Context) ([]*domain.Notification, error)
	replaceAllFn func(context.Context, []*domain.Notification) error
	clearFn      func(context.Context) error
}

func (v recentStub) ReadAll(ctx context.Context) ([]*domain.Notification, error) {
	return v.readAllFn(ctx)
}

func (v recentStub) ReplaceAll(ctx context.Context, ns []*domain.Notification) error {
	if v.replaceAllFn == nil {
		return nil
	}
	return v.replaceAllFn(ctx, ns)
}

func (v recentStub) Clear(ctx context.Context) error {
	if v.clearFn == nil {
		return nil
	}
	return v.clearFn(ctx)
}

type recordingSink struct {
	mu     sync.Mutex
	topics []string
	events []domain.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, topic string, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

// fakeTx commits unless commitErr is set, driving a real dispatcher.
type fakeTx struct {
	commitErr  error
	dispatcher *txn.Dispatcher
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.dispatcher = txn.NewDispatcher()
	if err := fn(ctx); err != nil {
		f.dispatcher.Abort()
		return err
	}
	if f.commitErr != nil {
		f.dispatcher.Abort()
		return f.commitErr
	}
	f.dispatcher.Commit(ctx)
	return nil
}

func (f *fakeTx) AfterCommit(_ context.Context, action txn.Action) error {
	if f.dispatcher == nil {
		return txn.ErrNoTransaction
	}
	return f.dispatcher.Register(action)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type redisFixture struct {
	mr       *miniredis.Miniredis
	client   *redis.Client
	entities *cache.EntityCache
	recent   *cache.RecentView
	lock     *cache.Lock
}

func newRedisFixture(t *testing.T) *redisFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &redisFixture{
		mr:       mr,
		client:   client,
		entities: cache.NewEntityCache(client, "", 0),
		recent:   cache.NewRecentView(client, "", 0),
		lock:     cache.NewLock(client, ""),
	}
}

func (f *redisFixture) coordinator(repo domain.NotificationRepository, cfg CoordinatorConfig) *CacheCoordinator {
	return NewCacheCoordinator(repo, f.entities, f.recent, f.lock, cfg, discardLogger())
}

func notificationAt(id int64, createdAt time.Time) *domain.Notification {
	return &domain.Notification{
		ID:        id,
		Type:      domain.CategoryEmail,
		Recipient: "a@x.com",
		Subject:   "S",
		Content:   "C",
		CreatedAt: createdAt,
	}
}
