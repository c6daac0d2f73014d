package sqlx_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	storage "shanyrakkit/adapters/sqlx"
	"shanyrakkit/core"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func shanyrakRows(id string, name string, points, members, seq int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "name", "color", "points", "members", "seq", "created_at", "updated_at"}).
		AddRow(id, name, "#F00", points, members, seq, now, now)
}

func TestSQLMock_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO shanyraks`).
		WithArgs(sqlmock.AnyArg(), "Red", "#F00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT id, name, color, points, members, seq, created_at, updated_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(shanyrakRows("s1", "Red", 0, 0, 1))

	created, err := store.Insert(context.Background(), "Red", "#F00")
	require.NoError(t, err)
	require.Equal(t, int64(0), created.Points)
	require.Equal(t, int64(0), created.Members)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Insert_Conflict(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO shanyraks`).
		WithArgs(sqlmock.AnyArg(), "Red", "#F00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.Insert(context.Background(), "Red", "#F00")
	require.True(t, core.IsConflict(err), "expected conflict, got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddPoints(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE shanyraks SET points = points \+ \$1`).
		WithArgs(int64(50), sqlmock.AnyArg(), core.ShanyrakID("s1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, name, color, points, members, seq, created_at, updated_at`).
		WithArgs(core.ShanyrakID("s1")).
		WillReturnRows(shanyrakRows("s1", "Red", 50, 0, 1))

	updated, err := store.AddPoints(context.Background(), "s1", 50)
	require.NoError(t, err)
	require.Equal(t, int64(50), updated.Points)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddPoints_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE shanyraks SET points = points \+ \$1`).
		WithArgs(int64(5), sqlmock.AnyArg(), core.ShanyrakID("missing")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.AddPoints(context.Background(), "missing", 5)
	require.True(t, core.IsNotFound(err), "expected not found, got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AdjustMembers_RejectsNegative(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	// conditional update matches no rows, row still exists -> validation error
	mock.ExpectExec(`UPDATE shanyraks SET members = members \+ \$1`).
		WithArgs(int64(-5), sqlmock.AnyArg(), core.ShanyrakID("s1"), int64(-5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, name, color, points, members, seq, created_at, updated_at`).
		WithArgs(core.ShanyrakID("s1")).
		WillReturnRows(shanyrakRows("s1", "Red", 0, 2, 1))

	_, err := store.AdjustMembers(context.Background(), "s1", -5)
	require.True(t, core.IsInvalid(err), "expected validation error, got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_ListByPoints(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "name", "color", "points", "members", "seq", "created_at", "updated_at"}).
		AddRow("b", "B", "#222", int64(30), int64(0), int64(2), now, now).
		AddRow("c", "C", "#333", int64(20), int64(0), int64(3), now, now).
		AddRow("a", "A", "#111", int64(10), int64(0), int64(1), now, now)
	mock.ExpectQuery(`ORDER BY points DESC, seq ASC`).WillReturnRows(rows)

	ranked, err := store.ListByPoints(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	require.Equal(t, core.ShanyrakID("b"), ranked[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
