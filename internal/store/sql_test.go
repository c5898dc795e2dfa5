package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgresMock(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQL(db, DriverPostgres)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mock
}

func TestSQL_Rebind(t *testing.T) {
	pg := NewSQL(nil, DriverPostgres)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := NewSQL(nil, DriverSQLite)
	assert.Equal(t, "SELECT a FROM t WHERE x = ?", lite.rebind("SELECT a FROM t WHERE x = ?"))
}

func TestSQL_MigrateRequiresDSN(t *testing.T) {
	s, mock := setupPostgresMock(t)

	err := s.Migrate(context.Background())
	assert.ErrorContains(t, err, "no dsn")
	assert.NoError(t, mock.ExpectationsWereMet(), "no statements reach the wrapped handle")
}

func TestPostgres_SaveAndLoadTest(t *testing.T) {
	s, mock := setupPostgresMock(t)
	ctx := context.Background()
	now := s.now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO abtest_tests (id, payload, updated_at) VALUES ($1, $2, $3)")).
		WithArgs("t-1", "{}", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM abtest_tests WHERE id = $1")).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow("{}"))

	require.NoError(t, s.SaveTest(ctx, "t-1", "{}"))
	payload, err := s.LoadTest(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "{}", payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadTestNotFound(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM abtest_tests WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := s.LoadTest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSession(t *testing.T) {
	s, mock := setupPostgresMock(t)
	updated := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, test_id, settings, updated_at FROM abtest_sessions WHERE id = $1")).
		WithArgs("chat-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "test_id", "settings", "updated_at"}).
			AddRow("chat-9", "t-9", `{"language":"rus","alpha":0.1,"epsilon":0.95}`, updated))

	sess, err := s.GetSession(context.Background(), "chat-9")
	require.NoError(t, err)
	assert.Equal(t, &Session{
		ID:        "chat-9",
		TestID:    "t-9",
		Settings:  Settings{Language: "rus", Alpha: 0.1, Epsilon: 0.95},
		UpdatedAt: updated,
	}, sess)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutSession(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO abtest_sessions (id, test_id, settings, updated_at)")).
		WithArgs("chat-1", "t-1", `{"language":"eng","alpha":0.05,"epsilon":0.9}`, s.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutSession(context.Background(), &Session{ID: "chat-1", TestID: "t-1", Settings: DefaultSettings()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Errors(t *testing.T) {
	s, mock := setupPostgresMock(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM abtest_tests WHERE id = $1")).
		WithArgs("t-1").
		WillReturnError(boom)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, test_id, settings, updated_at FROM abtest_sessions")).
		WillReturnError(boom)

	err := s.DeleteTest(context.Background(), "t-1")
	assert.ErrorIs(t, err, boom)
	_, err = s.GetSession(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}
