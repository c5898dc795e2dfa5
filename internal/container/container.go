// Package container manages the local PostgreSQL store with docker compose.
package container

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/moguls753/abtest/internal/store"
)

// DefaultComposeFile is the compose file shipped with the repository
const DefaultComposeFile = "docker/docker-compose.postgres.yml"

type Config struct {
	Name         string
	ComposeFile  string
	WaitForReady func(ctx context.Context) error
}

// execCommand is replaced in tests
var execCommand = exec.CommandContext

// Postgres returns the config of the compose PostgreSQL reachable at dsn
func Postgres(composeFile, dsn string, timeout time.Duration) Config {
	return Config{
		Name:        "PostgreSQL",
		ComposeFile: composeFile,
		WaitForReady: func(ctx context.Context) error {
			return WaitFor(ctx, timeout, 500*time.Millisecond, func(ctx context.Context) error {
				db, err := store.OpenSQL(ctx, store.DriverPostgres, dsn)
				if err != nil {
					return err
				}
				return db.Close()
			})
		},
	}
}

// Start brings the compose project up and waits until it accepts connections
func Start(ctx context.Context, cfg Config, out io.Writer) error {
	fmt.Fprintf(out, "Starting %s container...\n", cfg.Name)

	cmd := execCommand(ctx, "docker", "compose", "-f", cfg.ComposeFile, "up", "-d")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to start container: %w\noutput: %s", err, string(output))
	}

	if cfg.WaitForReady != nil {
		fmt.Fprintf(out, "Waiting for %s to initialize...\n", cfg.Name)
		if err := cfg.WaitForReady(ctx); err != nil {
			return fmt.Errorf("%s failed to start: %w", cfg.Name, err)
		}
	}

	fmt.Fprintln(out, "Container ready")
	return nil
}

// Stop takes the compose project down. With removeVolumes the stored data is deleted.
func Stop(ctx context.Context, composeFile string, removeVolumes bool, out io.Writer) error {
	fmt.Fprintln(out, "Stopping container...")

	args := []string{"compose", "-f", composeFile, "down"}
	if removeVolumes {
		args = append(args, "-v")
	}
	cmd := execCommand(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to stop container: %w\noutput: %s", err, string(output))
	}

	fmt.Fprintln(out, "Container stopped")
	return nil
}

// WaitFor polls check every interval until it succeeds or timeout passes
func WaitFor(ctx context.Context, timeout, interval time.Duration, check func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = check(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting after %v: %w", timeout, lastErr)
		case <-ticker.C:
		}
	}
}
