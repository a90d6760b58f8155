package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"github.com/saransh1220/notification-service/internal/shared/infrastructure/txn"
)

const DefaultTopic = "notification-events"

// TxRunner is satisfied by *txn.Manager.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, action txn.Action) error
}

type CreateInput struct {
	Type      string
	Recipient string
	Subject   string
	Content   string
}

type UpdateInput struct {
	Subject string
	Content string
}

type NotificationService struct {
	repo        domain.NotificationRepository
	tx          TxRunner
	coordinator *CacheCoordinator
	entities    domain.EntityCache
	recent      domain.RecentView
	sink        domain.EventSink
	topic       string
	logger      *slog.Logger
}

func NewNotificationService(
	repo domain.NotificationRepository,
	tx TxRunner,
	coordinator *CacheCoordinator,
	entities domain.EntityCache,
	recent domain.RecentView,
	sink domain.EventSink,
	topic string,
	logger *slog.Logger,
) *NotificationService {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &NotificationService{
		repo:        repo,
		tx:          tx,
		coordinator: coordinator,
		entities:    entities,
		recent:      recent,
		sink:        sink,
		topic:       topic,
		logger:      logger.With("component", "notification_service"),
	}
}

func (s *NotificationService) GetByID(ctx context.Context, id int64) (*domain.Notification, bool, error) {
	return s.coordinator.Lookup(ctx, id)
}

func (s *NotificationService) GetRecent(ctx context.Context) ([]*domain.Notification, error) {
	return s.coordinator.GetRecent(ctx)
}

func (s *NotificationService) Create(ctx context.Context, in CreateInput) (*domain.Notification, error) {
	category, err := domain.ParseCategory(in.Type)
	if err != nil {
		return nil, err
	}
	n := &domain.Notification{
		Type:      category,
		Recipient: in.Recipient,
		Subject:   in.Subject,
		Content:   in.Content,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Save(ctx, n); err != nil {
			return fmt.Errorf("failed to save notification: %w", err)
		}
		snapshot := *n
		return s.tx.AfterCommit(ctx, func(ctx context.Context) {
			s.publish(ctx, &snapshot, domain.MessageTypeCreate)
			if err := s.entities.Put(ctx, &snapshot); err != nil {
				s.sideEffectFailed("cache_put", snapshot.ID, err)
			}
			s.clearRecent(ctx, snapshot.ID)
		})
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Update returns (nil, nil) when id does not exist.
func (s *NotificationService) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Notification, error) {
	var updated *domain.Notification
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.FindAndLockByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to lock notification: %w", err)
		}
		if n == nil {
			return nil
		}

		n.Subject = in.Subject
		n.Content = in.Content
		if err := n.Validate(); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, n); err != nil {
			return fmt.Errorf("failed to save notification: %w", err)
		}
		updated = n

		snapshot := *n
		return s.tx.AfterCommit(ctx, func(ctx context.Context) {
			s.publish(ctx, &snapshot, domain.MessageTypeUpdate)
			s.invalidate(ctx, snapshot.ID)
			s.clearRecent(ctx, snapshot.ID)
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete reports false when id does not exist.
func (s *NotificationService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.FindAndLockByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to lock notification: %w", err)
		}
		if n == nil {
			return nil
		}
		if err := s.repo.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete notification: %w", err)
		}
		deleted = true

		snapshot := *n
		return s.tx.AfterCommit(ctx, func(ctx context.Context) {
			s.publish(ctx, &snapshot, domain.MessageTypeDelete)
			s.invalidate(ctx, snapshot.ID)
			s.clearRecent(ctx, snapshot.ID)
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *NotificationService) publish(ctx context.Context, n *domain.Notification, mt domain.MessageType) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, s.topic, domain.NewEvent(n, mt)); err != nil {
		s.sideEffectFailed("publish", n.ID, err)
	}
}

func (s *NotificationService) invalidate(ctx context.Context, id int64) {
	if err := s.entities.Invalidate(ctx, id); err != nil {
		s.sideEffectFailed("cache_invalidate", id, err)
	}
}

func (s *NotificationService) clearRecent(ctx context.Context, id int64) {
	if err := s.recent.Clear(ctx); err != nil {
		s.sideEffectFailed("recent_clear", id, err)
	}
}

func (s *NotificationService) sideEffectFailed(action string, id int64, err error) {
	sideEffectFailures.WithLabelValues(action).Inc()
	s.logger.Warn("post-commit action failed", "action", action, "id", id, "error", err)
}
