//go:build integration_pg
// +build integration_pg

package pg

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func TestOpen_UpsertByNaturalKey_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	WithTestDB(t, dsn, func(pc *pgxpool.Config) {
		pc.MinConns = 1
	}, func(p *PG) {
		// TEMP tables need a single session
		conn := AcquireConn(t, p, ctx)

		if _, err := conn.Exec(ctx, `
			create temporary table changes (
				project_id  bigint not null,
				commit_hash text   not null,
				file_path   text   not null,
				added       bigint not null,
				unique (project_id, commit_hash, file_path)
			)`); err != nil {
			t.Fatalf("create temp table failed: %v", err)
		}
		defer func() { _, _ = conn.Exec(ctx, `drop table if exists changes`) }()

		upsert := `
			insert into changes (project_id, commit_hash, file_path, added)
			values ($1, $2, $3, $4)
			on conflict (project_id, commit_hash, file_path)
			do update set added = excluded.added`

		// replaying the same change twice must leave one row with the last values
		for _, added := range []int64{4, 9} {
			if _, err := conn.Exec(ctx, upsert, 1, "abc123", "pkg/a.go", added); err != nil {
				t.Fatalf("upsert failed: %v", err)
			}
		}

		var count, added int64
		if err := conn.QueryRow(ctx, `select count(*), max(added) from changes`).Scan(&count, &added); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 || added != 9 {
			t.Fatalf("unexpected rows: count=%d added=%d", count, added)
		}
	})
}
