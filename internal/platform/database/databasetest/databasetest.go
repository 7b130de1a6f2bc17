// Package databasetest starts a throwaway PostgreSQL container for
// integration tests.
package databasetest

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/cryptoedu/tutor/internal/platform/database"
)

const image = "postgres:16-alpine"

// New starts PostgreSQL, applies migrations and returns a connected DB. The
// container and pool are released when t finishes. The test is skipped in
// short mode or when no container runtime is available.
func New(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := t.Context()
	ctr, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("tutor"),
		tcpostgres.WithUsername("tutor"),
		tcpostgres.WithPassword("tutor"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	db, err := database.New(ctx, dsn, 4, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}
