// Package testutil provides shared test infrastructure: a disposable
// PostgreSQL container with pgvector, and fakes for the embedding and
// model providers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oceanward/reefguide/db"
	"github.com/oceanward/reefguide/internal/database"
	"github.com/oceanward/reefguide/internal/log"
)

// postgresImage includes the pgvector extension required by the
// chunks table.
const postgresImage = "pgvector/pgvector:pg16"

// StartPostgres launches a throwaway PostgreSQL container, applies all
// migrations, and returns its connection URL. The container is removed
// when the test finishes. Tests calling this are skipped with -short.
func StartPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("reefguide_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)))
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connURL, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}

	if err := db.Migrate(connURL); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return connURL
}

// StartPostgresPool launches a container via StartPostgres and returns
// a ready connection pool with pgvector types registered.
func StartPostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connURL := StartPostgres(t)
	pool, err := database.New(context.Background(), connURL, log.NewNop())
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
