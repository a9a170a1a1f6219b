package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/loykin/appman/internal/catalog"
)

// startPostgresContainer starts a PostgreSQL container for tests
// and returns a DSN suitable for pgx stdlib. It skips the test if Docker is unavailable.
func startPostgresContainer(t *testing.T) (dsn string, terminate func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		cancel()
		t.Skipf("Failed to start PostgreSQL container: %v", err)
		return "", nil
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get host info: %v", err)
		return "", nil
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get mapped port: %v", err)
		return "", nil
	}

	dsn = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	terminate = func() {
		_ = container.Terminate(ctx)
		cancel()
	}

	return dsn, terminate
}

func waitForPostgres(t *testing.T, dsn string) {
	// Ping until timeout; the container can report ready before the DB accepts connections.
	deadline := time.Now().Add(45 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				_ = db.Close()
				cancel()
				return
			}
			_ = db.Close()
		}
		cancel()
		if time.Now().After(deadline) {
			t.Fatalf("postgres not ready in time: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestPostgresCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	dsn, terminate := startPostgresContainer(t)
	waitForPostgres(t, dsn)
	defer func() {
		if terminate != nil {
			terminate()
		}
	}()

	db, err := New(dsn)
	if err != nil {
		t.Fatalf("pg open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	app := catalog.App{
		Name:    "pgsvc",
		Path:    "/srv/pgsvc",
		Entry:   "app.main:app",
		Host:    "127.0.0.1",
		Port:    9301,
		Args:    "--workers 2",
		Enabled: true,
	}
	created, err := db.Create(ctx, app)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}

	if _, err := db.Create(ctx, app); !errors.Is(err, catalog.ErrDuplicateName) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}

	got, err := db.GetByName(ctx, "pgsvc")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got != created {
		t.Fatalf("unexpected app: %+v", got)
	}

	created.Port = 9400
	created.Enabled = false
	if _, err := db.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, err := db.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got2.Port != 9400 || got2.Enabled {
		t.Fatalf("update not applied: %+v", got2)
	}

	up := app
	up.Port = 9500
	upserted, err := db.UpsertByName(ctx, up)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if upserted.ID != created.ID || upserted.Port != 9500 {
		t.Fatalf("unexpected upsert result: %+v", upserted)
	}

	apps, err := db.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("expected 1 app, got %d", len(apps))
	}

	if err := db.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get(ctx, created.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
