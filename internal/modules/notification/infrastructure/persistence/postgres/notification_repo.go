package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	"github.com/saransh1220/notification-service/internal/shared/infrastructure/txn"
)

const notificationColumns = `id, type, recipient, subject, content, created_at`

type PgNotificationRepository struct {
	db *sqlx.DB
}

var _ domain.NotificationRepository = (*PgNotificationRepository)(nil)

func NewPgNotificationRepository(db *sqlx.DB) *PgNotificationRepository {
	return &PgNotificationRepository{db: db}
}

// Save inserts a new row when n.ID is zero and updates the mutable fields otherwise.
// On insert the store assigns ID and CreatedAt.
func (r *PgNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	exec := txn.Executor(ctx, r.db)

	if n.ID == 0 {
		query := `
			INSERT INTO notifications (type, recipient, subject, content, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			RETURNING id, created_at
		`
		return exec.QueryRowxContext(ctx, query, n.Type, n.Recipient, n.Subject, n.Content).
			Scan(&n.ID, &n.CreatedAt)
	}

	query := `
		UPDATE notifications
		SET subject = $1, content = $2
		WHERE id = $3
	`
	result, err := exec.ExecContext(ctx, query, n.Subject, n.Content, n.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *PgNotificationRepository) FindByID(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	return r.findOne(ctx, txn.Executor(ctx, r.db), query, id)
}

// FindAndLockByID takes a row lock (SELECT ... FOR UPDATE) that lives until
// the ambient transaction ends, so it refuses to run without one.
func (r *PgNotificationRepository) FindAndLockByID(ctx context.Context, id int64) (*domain.Notification, error) {
	tx, ok := txn.FromContext(ctx)
	if !ok {
		return nil, txn.ErrNoTransaction
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, tx, query, id)
}

func (r *PgNotificationRepository) FindTopNByCreatedAtDesc(ctx context.Context, n int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	var notifications []*domain.Notification
	if err := sqlx.SelectContext(ctx, txn.Executor(ctx, r.db), &notifications, query, n); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *PgNotificationRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := txn.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	return err
}

func (r *PgNotificationRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`
	if err := sqlx.GetContext(ctx, txn.Executor(ctx, r.db), &exists, query, id); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgNotificationRepository) findOne(ctx context.Context, q sqlx.QueryerContext, query string, id int64) (*domain.Notification, error) {
	var n domain.Notification
	err := sqlx.GetContext(ctx, q, &n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
