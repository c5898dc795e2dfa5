package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Backend names
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config selects and configures a storage backend
type Config struct {
	Backend string      `yaml:"backend" validate:"oneof=memory sqlite postgres redis"`
	DSN     string      `yaml:"dsn"` // sqlite path or postgres connection string
	Redis   RedisConfig `yaml:"redis"`
}

// DefaultPostgresDSN matches the compose file shipped in docker/
const DefaultPostgresDSN = "host=localhost port=5432 user=abtest password=abtest123 dbname=abtest sslmode=disable"

// Open connects to the configured backend. SQL backends are migrated.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemory()
	case BackendSQLite, BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store %s: dsn is required", cfg.Backend)
		}
		if cfg.Backend == BackendSQLite {
			if err = ensureDir(cfg.DSN); err != nil {
				return nil, fmt.Errorf("store sqlite: %w", err)
			}
		}
		var db *SQL
		db, err = OpenSQL(ctx, cfg.Backend, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", cfg.Backend, err)
		}
		if err = db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("store %s: %w", cfg.Backend, err)
		}
		s = db
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("store redis: addr is required")
		}
		s, err = OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("store redis: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}

	logger.Debug("store opened", zap.String("backend", cfg.Backend))
	return s, nil
}

// ensureDir creates the parent directory of a sqlite file path. URI and
// in-memory DSNs are left to the driver.
func ensureDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
