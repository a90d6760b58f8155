package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(sqlDB, "sqlmock"), mock, func() { _ = sqlDB.Close() }
}

func TestManager_WithinTx_CommitFiresActions(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE notifications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var fired []string
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		_, ok := FromContext(ctx)
		require.True(t, ok)

		_, err := Executor(ctx, db).ExecContext(ctx, "UPDATE notifications SET content = $1", "x")
		require.NoError(t, err)

		require.NoError(t, m.AfterCommit(ctx, func(context.Context) { fired = append(fired, "first") }))
		require.NoError(t, AfterCommit(ctx, func(context.Context) { fired = append(fired, "second") }))
		assert.Empty(t, fired, "actions must not run before commit")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, fired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_WithinTx_ErrorRollsBackAndDiscards(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	fired := false
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, m.AfterCommit(ctx, func(context.Context) { fired = true }))
		return errors.New("save failed")
	})

	require.EqualError(t, err, "save failed")
	assert.False(t, fired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_WithinTx_CommitFailureDiscards(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	fired := false
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		return m.AfterCommit(ctx, func(context.Context) { fired = true })
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.False(t, fired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_WithinTx_BeginFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	called := false
	err := m.WithinTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_WithinTx_PanicRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	fired := false
	assert.Panics(t, func() {
		_ = m.WithinTx(context.Background(), func(ctx context.Context) error {
			_ = m.AfterCommit(ctx, func(context.Context) { fired = true })
			panic("boom")
		})
	})
	assert.False(t, fired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_WithinTx_NestedJoinsOuter(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	count := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		return m.WithinTx(ctx, func(inner context.Context) error {
			return m.AfterCommit(inner, func(context.Context) { count++ })
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_ActionContextSurvivesCancellation(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	m := NewManager(db, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var done <-chan struct{}
	err := m.WithinTx(ctx, func(txCtx context.Context) error {
		return m.AfterCommit(txCtx, func(actionCtx context.Context) {
			done = actionCtx.Done()
		})
	})

	require.NoError(t, err)
	assert.Nil(t, done, "post-commit context must not inherit cancellation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAfterCommit_OutsideTransaction(t *testing.T) {
	err := AfterCommit(context.Background(), func(context.Context) {})
	assert.ErrorIs(t, err, ErrNoTransaction)

	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestExecutor_FallsBackToPool(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	assert.Equal(t, db, Executor(context.Background(), db))
}
