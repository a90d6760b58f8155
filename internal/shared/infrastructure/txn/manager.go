package txn

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

type scope struct {
	tx         *sqlx.Tx
	dispatcher *Dispatcher
}

// Manager runs units of work inside a database transaction and fires their
// post-commit actions only after the commit succeeded.
type Manager struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewManager(db *sqlx.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &Manager{db: db, logger: logger.With("component", "txn")}
}

// WithinTx executes fn inside a transaction carried by the context passed to fn.
// A nested call joins the outer transaction; only the outermost call commits.
func (m *Manager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*scope); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s := &scope{tx: tx, dispatcher: NewDispatcher()}
	txCtx := context.WithValue(ctx, txKey{}, s)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			s.dispatcher.Abort()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Warn("rollback failed", "error", rbErr)
		}
		s.dispatcher.Abort()
		return err
	}

	if err := tx.Commit(); err != nil {
		s.dispatcher.Abort()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// The request may be cancelled right after the commit; the side effects still have to land.
	s.dispatcher.Commit(context.WithoutCancel(ctx))
	return nil
}

// AfterCommit registers action on the transaction carried by ctx.
func (m *Manager) AfterCommit(ctx context.Context, action Action) error {
	return AfterCommit(ctx, action)
}

// AfterCommit registers action on the transaction carried by ctx.
// Without one it returns ErrNoTransaction.
func AfterCommit(ctx context.Context, action Action) error {
	s, ok := ctx.Value(txKey{}).(*scope)
	if !ok {
		return ErrNoTransaction
	}
	return s.dispatcher.Register(action)
}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (*sqlx.Tx, bool) {
	s, ok := ctx.Value(txKey{}).(*scope)
	if !ok {
		return nil, false
	}
	return s.tx, true
}

// Executor picks the ambient transaction when there is one, the pool otherwise.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := FromContext(ctx); ok {
		return tx
	}
	return db
}
