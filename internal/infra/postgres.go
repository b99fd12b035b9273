package infra

import (
	"context"
	"fmt"
	"time"

	"context-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// PoolConfig holds tunable parameters for the PostgreSQL connection pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgresDB creates a new PostgreSQL connection pool with pgvector types
// registered on every connection.
func NewPostgresDB(ctx context.Context, dsn string, opts ...PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(opts) > 0 && opts[0].MaxConns > 0 {
		config.MaxConns = opts[0].MaxConns
	} else {
		config.MaxConns = 10
	}
	if len(opts) > 0 && opts[0].MinConns > 0 {
		config.MinConns = opts[0].MinConns
	} else {
		config.MinConns = 2
	}

	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return pool, nil
}

// requiredTables are the tables the service expects migrations to have
// created before it starts.
var requiredTables = []string{"documents", "chunks", "ingest_jobs"}

// CheckSchema verifies at startup that the store supports what retrieval
// needs: the pgvector extension and the expected tables. Failing here is
// preferable to failing on the first query.
func CheckSchema(ctx context.Context, pool *pgxpool.Pool) error {
	var hasVector bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`,
	).Scan(&hasVector)
	if err != nil {
		return &domain.ConfigError{Field: "database", Err: fmt.Errorf("failed to check pgvector extension: %w", err)}
	}
	if !hasVector {
		return &domain.ConfigError{Field: "database", Err: fmt.Errorf("pgvector extension is not installed")}
	}

	for _, table := range requiredTables {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table,
		).Scan(&exists)
		if err != nil {
			return &domain.ConfigError{Field: "database", Err: fmt.Errorf("failed to check table %s: %w", table, err)}
		}
		if !exists {
			return &domain.ConfigError{Field: "database", Err: fmt.Errorf("required table %s is missing", table)}
		}
	}

	return nil
}
