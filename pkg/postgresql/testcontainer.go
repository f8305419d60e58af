package postgresql

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupFunc prepares a fresh database, usually by applying migrations.
type SetupFunc func(ctx context.Context, client PostgreSQLClient) error

// TestContainer is a disposable PostgreSQL server with a connected client.
type TestContainer struct {
	Container testcontainers.Container
	Client    PostgreSQLClient
	ConnStr   string
	ctx       context.Context
}

// TestContainerConfig holds configuration for the test container
type TestContainerConfig struct {
	Image          string
	Database       string
	Username       string
	Password       string
	StartupTimeout time.Duration
	// Setup runs once the client is connected.
	Setup SetupFunc
	// KeepTables are left alone by TruncateAllTables.
	KeepTables []string
}

// DefaultTestContainerConfig returns a default configuration
func DefaultTestContainerConfig() *TestContainerConfig {
	return &TestContainerConfig{
		Image:          "postgres:16-alpine",
		Database:       "settlement_test",
		Username:       "settlement",
		Password:       "settlement",
		StartupTimeout: 3 * time.Minute,
		KeepTables:     []string{"schema_migrations"},
	}
}

// NewTestContainer starts a PostgreSQL container, connects to it and runs
// config.Setup.
func NewTestContainer(ctx context.Context, config *TestContainerConfig) (*TestContainer, error) {
	if config == nil {
		config = DefaultTestContainerConfig()
	}

	container, err := postgres.Run(ctx, config.Image,
		postgres.WithDatabase(config.Database),
		postgres.WithUsername(config.Username),
		postgres.WithPassword(config.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(config.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	tc := &TestContainer{Container: container, ctx: ctx}

	tc.ConnStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, stderrors.Join(fmt.Errorf("failed to get connection string: %w", err), tc.Close())
	}

	pool, err := pgxpool.New(ctx, tc.ConnStr)
	if err != nil {
		return nil, stderrors.Join(fmt.Errorf("failed to create connection pool: %w", err), tc.Close())
	}
	tc.Client = &Client{pool: pool, config: Config{Database: config.Database}}

	if err := pool.Ping(ctx); err != nil {
		return nil, stderrors.Join(fmt.Errorf("failed to ping database: %w", err), tc.Close())
	}

	if config.Setup != nil {
		if err := config.Setup(ctx, tc.Client); err != nil {
			return nil, stderrors.Join(fmt.Errorf("failed to set up database: %w", err), tc.Close())
		}
	}

	return tc, nil
}

// Close closes the client and terminates the container
func (tc *TestContainer) Close() error {
	if tc.Client != nil {
		tc.Client.Close()
	}
	if tc.Container == nil {
		return nil
	}
	if err := tc.Container.Terminate(tc.ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}

// TruncateAllTables empties every public table except keep in one statement.
func (tc *TestContainer) TruncateAllTables(keep ...string) error {
	if keep == nil {
		keep = []string{}
	}

	var tables string
	err := tc.Client.QueryRow(tc.ctx, `
		SELECT COALESCE(string_agg(quote_ident(tablename), ', '), '')
		FROM pg_tables
		WHERE schemaname = 'public' AND NOT (tablename = ANY($1))`, keep).Scan(&tables)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if tables == "" {
		return nil
	}

	if _, err := tc.Client.Exec(tc.ctx, "TRUNCATE TABLE "+tables+" RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
