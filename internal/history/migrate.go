package history

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID serializes migrations across processes sharing a database.
const migrationLockID = 0x666c6f6174 // "float"

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS history_migrations (
		version    TEXT        PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// RunMigrations applies pending migrations in version order and returns the
// versions it applied. Each migration and its bookkeeping row commit in one
// transaction. Fix forward only; there are no down migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("taking migration lock: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID) //nolint:errcheck // best effort

	if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("creating history_migrations table: %w", err)
	}

	versions, err := migrationVersions()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, v := range versions {
		ok, err := applyMigration(ctx, conn, v)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, v)
		}
	}
	return applied, nil
}

// migrationVersions lists the embedded migration files. Zero-padded
// prefixes make lexical order the version order.
func migrationVersions() ([]string, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	versions := make([]string, 0, len(names))
	for _, n := range names {
		versions = append(versions, path.Base(n))
	}
	slices.Sort(versions)
	return versions, nil
}

func applyMigration(ctx context.Context, conn *pgxpool.Conn, version string) (bool, error) {
	var done bool
	if err := conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM history_migrations WHERE version = $1)",
		version,
	).Scan(&done); err != nil {
		return false, fmt.Errorf("checking migration %s: %w", version, err)
	}
	if done {
		return false, nil
	}

	body, err := migrationsFS.ReadFile("migrations/" + version)
	if err != nil {
		return false, fmt.Errorf("reading migration %s: %w", version, err)
	}

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "INSERT INTO history_migrations (version) VALUES ($1)", version)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("applying migration %s: %w", version, err)
	}
	return true, nil
}
