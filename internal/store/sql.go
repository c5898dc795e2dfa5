package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by OpenSQL
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQL is a Store over database/sql, used with PostgreSQL (lib/pq) and SQLite
// (modernc.org/sqlite). Queries are written with ? placeholders and rebound
// for PostgreSQL; both engines accept the ON CONFLICT upserts used here.
type SQL struct {
	db     *sql.DB
	driver string
	dsn    string
	now    func() time.Time
}

// OpenSQL connects to the database and verifies the connection
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unknown sql driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := NewSQL(db, driver)
	s.dsn = dsn
	return s, nil
}

// NewSQL wraps an open database handle. A handle built this way has no DSN
// and cannot be migrated.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver, now: time.Now}
}

func (s *SQL) GetSession(ctx context.Context, id string) (*Session, error) {
	var (
		sess     Session
		settings string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, test_id, settings, updated_at FROM abtest_sessions WHERE id = ?`), id,
	).Scan(&sess.ID, &sess.TestID, &settings, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if err := json.Unmarshal([]byte(settings), &sess.Settings); err != nil {
		return nil, fmt.Errorf("decode session settings: %w", err)
	}
	return &sess, nil
}

func (s *SQL) PutSession(ctx context.Context, sess *Session) error {
	settings, err := json.Marshal(sess.Settings)
	if err != nil {
		return fmt.Errorf("encode session settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO abtest_sessions (id, test_id, settings, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			test_id = EXCLUDED.test_id,
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at`),
		sess.ID, sess.TestID, string(settings), s.now().UTC())
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SQL) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM abtest_sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQL) LoadTest(ctx context.Context, testID string) (string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT payload FROM abtest_tests WHERE id = ?`), testID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load test: %w", err)
	}
	return payload, nil
}

func (s *SQL) SaveTest(ctx context.Context, testID, payload string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO abtest_tests (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`),
		testID, payload, s.now().UTC())
	if err != nil {
		return fmt.Errorf("save test: %w", err)
	}
	return nil
}

func (s *SQL) DeleteTest(ctx context.Context, testID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM abtest_tests WHERE id = ?`), testID); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQL) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
