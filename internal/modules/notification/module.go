package notification

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/notification-service/internal/modules/notification/application"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/cache"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/events"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/saransh1220/notification-service/internal/modules/notification/infrastructure/websocket"
	notification_http "github.com/saransh1220/notification-service/internal/modules/notification/interfaces/http"
	"github.com/saransh1220/notification-service/internal/shared/infrastructure/config"
	"github.com/saransh1220/notification-service/internal/shared/infrastructure/txn"
)

const recentOperation = "getRecentNotifications"

type Module struct {
	service     *application.NotificationService
	coordinator *application.CacheCoordinator
	handler     *notification_http.NotificationHandler
	hub         *websocket.Hub
	sinks       *events.FanOut
}

// NewModule wires the notification store: Postgres is the source of truth,
// Redis carries the caches, the lock and the event stream. The S3 archive
// joins the sinks only when enabled.
func NewModule(ctx context.Context, db *sqlx.DB, rdb redis.Cmdable, cfg config.Config, logger *slog.Logger) (*Module, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	repo := postgres.NewPgNotificationRepository(db)
	tx := txn.NewManager(db, logger)

	entities := cache.NewEntityCache(rdb, cfg.Cache.KeyPrefix, cfg.Cache.EntityTTL)
	recent := cache.NewRecentView(rdb, cfg.Cache.RecentKey, cfg.Cache.RecentLimit)
	lock := cache.NewLock(rdb, recent.Key())

	coordinator := application.NewCacheCoordinator(repo, entities, recent, lock, application.CoordinatorConfig{
		RecentLimit: recent.Limit(),
		LockTTL:     cfg.Cache.LockTTL,
		Backoff:     cfg.Cache.LockBackoff,
		LockKey:     lock.Key(recentOperation),
	}, logger)

	hub := websocket.NewHub()
	sinks := []domain.EventSink{events.NewStreamPublisher(rdb, cfg.Events.MaxLen), hub}
	if cfg.Archive.Enabled {
		archive, err := events.NewS3Archive(ctx, events.ArchiveConfig{
			Bucket:    cfg.Archive.Bucket,
			Prefix:    cfg.Archive.Prefix,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("event archive: %w", err)
		}
		sinks = append(sinks, archive)
	}
	fanOut := events.NewFanOut(sinks...)

	go hub.Run()

	service := application.NewNotificationService(repo, tx, coordinator, entities, recent, fanOut, cfg.Events.Topic, logger)

	return &Module{
		service:     service,
		coordinator: coordinator,
		handler:     notification_http.NewNotificationHandler(service, hub),
		hub:         hub,
		sinks:       fanOut,
	}, nil
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}

func (m *Module) Coordinator() *application.CacheCoordinator {
	return m.coordinator
}

func (m *Module) Hub() *websocket.Hub {
	return m.hub
}

// SinkCount is the number of places a committed event is published to.
func (m *Module) SinkCount() int {
	return m.sinks.Len()
}

// Shutdown stops the websocket hub.
func (m *Module) Shutdown() {
	m.hub.Stop()
}
