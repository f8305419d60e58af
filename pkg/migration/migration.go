package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
)

// Migration is one *.up.sql file with its optional *.down.sql counterpart.
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Config for migration runner
type Config struct {
	Schema    string // default "public"
	TableName string // default "schema_migrations"
}

// Runner applies migrations read from a filesystem to PostgreSQL, one
// transaction per migration.
type Runner struct {
	client    postgresql.PostgreSQLClient
	source    fs.FS
	logger    logger.Interface
	schema    string
	tableName string
}

// NewRunner creates a new migration runner. source is usually os.DirFS of
// the migrations directory or an embed.FS.
func NewRunner(client postgresql.PostgreSQLClient, source fs.FS, log logger.Interface, config Config) *Runner {
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}

	return &Runner{
		client:    client,
		source:    source,
		logger:    log,
		schema:    config.Schema,
		tableName: config.TableName,
	}
}

func (r *Runner) table() string {
	return fmt.Sprintf("%s.%s", r.schema, r.tableName)
}

// EnsureMigrationTable creates the tracking table if it doesn't exist
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	_, err := r.client.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`, r.table()))
	return err
}

// Applied returns the set of applied migration IDs
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.client.Query(ctx, fmt.Sprintf("SELECT id FROM %s", r.table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}

	return applied, rows.Err()
}

// Load reads all migrations from the source, sorted by file name.
func (r *Runner) Load() ([]Migration, error) {
	upFiles, err := fs.Glob(r.source, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(upFiles)

	migrations := make([]Migration, 0, len(upFiles))
	for _, upFile := range upFiles {
		up, err := fs.ReadFile(r.source, upFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", upFile, err)
		}

		id := strings.TrimSuffix(path.Base(upFile), ".up.sql")
		name := id
		if parts := strings.SplitN(id, "_", 2); len(parts) == 2 {
			name = parts[1]
		}

		var down string
		if content, err := fs.ReadFile(r.source, id+".down.sql"); err == nil {
			down = strings.TrimSpace(string(content))
		}

		migrations = append(migrations, Migration{
			ID:      id,
			Name:    name,
			UpSQL:   strings.TrimSpace(string(up)),
			DownSQL: down,
		})
	}

	return migrations, nil
}

// Pending returns migrations not applied yet, limited to steps when steps > 0.
func Pending(migrations []Migration, applied map[string]bool, steps int) []Migration {
	var pending []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}
	return pending
}

// Revertible returns the last applied migrations in reverse order, at most steps.
func Revertible(migrations []Migration, applied map[string]bool, steps int) []Migration {
	var revert []Migration
	for i := len(migrations) - 1; i >= 0 && len(revert) < steps; i-- {
		if applied[migrations[i].ID] {
			revert = append(revert, migrations[i])
		}
	}
	return revert
}

// MigrateUp applies pending migrations
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	migrations, err := r.Load()
	if err != nil {
		return err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	for _, m := range Pending(migrations, applied, steps) {
		if m.UpSQL == "" {
			r.logger.Warn("Skipping empty migration", logger.Field{Key: "migration", Value: m.ID})
			continue
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.UpSQL); err != nil {
				return err
			}
			_, err := r.client.Exec(txCtx,
				fmt.Sprintf("INSERT INTO %s (id, name, applied_at) VALUES ($1, $2, NOW())", r.table()),
				m.ID, m.Name,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}

		r.logger.Info("Applied migration", logger.Field{Key: "migration", Value: m.ID})
	}

	return nil
}

// MigrateDown reverts applied migrations
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0 for down migrations")
	}

	migrations, err := r.Load()
	if err != nil {
		return err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	for _, m := range Revertible(migrations, applied, steps) {
		if m.DownSQL == "" {
			return fmt.Errorf("no DOWN SQL found for migration %s - cannot revert", m.ID)
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.DownSQL); err != nil {
				return err
			}
			_, err := r.client.Exec(txCtx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table()), m.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", m.ID, err)
		}

		r.logger.Info("Reverted migration", logger.Field{Key: "migration", Value: m.ID})
	}

	return nil
}
