// Package testutil provides a migrated PostgreSQL database for service tests.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"storyquestAPI/internal/database"
)

var (
	once     sync.Once
	dbURL    string
	setupErr error
)

func start() {
	ctx := context.Background()
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		dbURL = url
	} else {
		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("storyquest_test"),
			postgres.WithUsername("storyquest"),
			postgres.WithPassword("storyquest"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(2*time.Minute),
			),
		)
		if err != nil {
			setupErr = err
			return
		}
		dbURL, setupErr = container.ConnectionString(ctx, "sslmode=disable")
		if setupErr != nil {
			return
		}
	}
	setupErr = database.Migrate(dbURL)
}

// NewPostgres returns a pool on an empty, migrated database. The container
// is shared by every test in the package binary; tables are truncated on
// each call, so tests using it must not run in parallel.
func NewPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	once.Do(start)
	if setupErr != nil {
		t.Skipf("postgres unavailable: %v", setupErr)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE users, challenges, stories, characters, settings, story_elements,
			progress, achievements, user_achievements, notifications, device_tokens
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
