package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates every table from the embedded migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	downs, err := migrationFiles(".down.sql")
	if err != nil {
		return err
	}
	ups, err := migrationFiles(".up.sql")
	if err != nil {
		return err
	}

	for i := len(downs) - 1; i >= 0; i-- {
		if err := execMigration(ctx, pool, downs[i]); err != nil {
			return err
		}
	}
	for _, name := range ups {
		if err := execMigration(ctx, pool, name); err != nil {
			return err
		}
	}

	// Drop golang-migrate bookkeeping so a later MigrateUp starts clean.
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}
	return nil
}

func migrationFiles(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func execMigration(ctx context.Context, pool *pgxpool.Pool, name string) error {
	sql, err := fs.ReadFile(migrations.FS, name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a USER-role account with sensible defaults.
func NewTestUser(t testing.TB, name string) *model.User {
	t.Helper()
	return &model.User{
		ID:           UniqueID("user"),
		Email:        strings.ToLower(UniqueID(name)) + "@example.com",
		Name:         name,
		PasswordHash: "not-a-real-hash",
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestAdmin creates an ADMIN-role account.
func NewTestAdmin(t testing.TB, name string) *model.User {
	t.Helper()
	user := NewTestUser(t, name)
	user.Role = model.RoleAdmin
	return user
}

// NewTestProject creates a project with sensible defaults.
func NewTestProject(t testing.TB, name string) *model.Project {
	t.Helper()
	return &model.Project{
		ID:        UniqueID("project"),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewClosedTimeLog creates a closed log of the given length starting at start.
func NewClosedTimeLog(t testing.TB, userID, projectID string, start time.Time, length time.Duration) *model.TimeLog {
	t.Helper()
	log := &model.TimeLog{
		ID:          UniqueID("log"),
		UserID:      userID,
		ProjectID:   projectID,
		StartTime:   start.Truncate(model.TimestampPrecision),
		Description: "test work",
		CreatedAt:   time.Now().UTC().Truncate(model.TimestampPrecision),
	}
	if err := log.Close(start.Add(length)); err != nil {
		t.Fatalf("close test log: %v", err)
	}
	return log
}

var idCounter uint64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	n := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), n)
}
