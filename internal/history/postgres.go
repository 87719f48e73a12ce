package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultPoolSize    = 4
	defaultDocumentKey = "default"

	// SQLSTATE for a relation that does not exist yet.
	undefinedTable = "42P01"
)

const (
	queryLoadDocument = `SELECT body FROM history_documents WHERE id = $1`

	querySaveDocument = `
		INSERT INTO history_documents (id, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
)

// PostgresBackend persists the history document as a single row. The
// upsert is one statement, so each Save replaces the row atomically.
type PostgresBackend struct {
	pool *pgxpool.Pool
	key  string
}

// PostgresOption configures the PostgresBackend.
type PostgresOption func(*PostgresBackend)

// WithDocumentKey stores history under a key other than "default", letting
// several monitors share one database.
func WithDocumentKey(key string) PostgresOption {
	return func(p *PostgresBackend) {
		p.key = key
	}
}

// NewPostgresBackend connects to PostgreSQL with connection pooling.
func NewPostgresBackend(
	ctx context.Context,
	connString string,
	opts ...PostgresOption,
) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	p := &PostgresBackend{pool: pool, key: defaultDocumentKey}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close gracefully shuts down the connection pool.
func (p *PostgresBackend) Close() {
	p.pool.Close()
}

// Ping verifies the database connection is alive.
func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations and reports which ran.
func (p *PostgresBackend) Migrate(ctx context.Context) ([]string, error) {
	return RunMigrations(ctx, p.pool)
}

// Load returns the stored document, or ErrNoHistory if there is none.
func (p *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, queryLoadDocument, p.key).Scan(&body)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == undefinedTable) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("loading history document: %w", err)
	}
	return body, nil
}

// Save upserts the document.
func (p *PostgresBackend) Save(ctx context.Context, data []byte) error {
	if _, err := p.pool.Exec(ctx, querySaveDocument, p.key, data); err != nil {
		return fmt.Errorf("saving history document: %w", err)
	}
	return nil
}
