package main

import (
	"context"
	"flag"
	"io/fs"
	"os"

	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/migration"
	"github.com/muhammadchandra19/settlement/pkg/postgresql"
	"github.com/muhammadchandra19/settlement/services/settlement/internal/infrastructure/postgresql/migrations"
	"github.com/muhammadchandra19/settlement/services/settlement/pkg/config"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "", "Read migrations from this directory instead of the embedded schema")
	)
	flag.Parse()

	ctx := context.Background()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.GetZap().Fatal("Failed to load config: " + err.Error())
	}

	pgClient, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.GetZap().Fatal("Failed to initialize PostgreSQL client: " + err.Error())
	}
	defer pgClient.Close()

	var source fs.FS = migrations.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	runner := migration.NewRunner(pgClient, source, log, migration.Config{
		Schema:    "public",
		TableName: "schema_migrations",
	})

	if err := runner.EnsureMigrationTable(ctx); err != nil {
		log.GetZap().Fatal("Failed to create migration table: " + err.Error())
	}

	switch *direction {
	case "up":
		err = runner.MigrateUp(ctx, *steps)
	case "down":
		err = runner.MigrateDown(ctx, *steps)
	default:
		log.GetZap().Fatal("Invalid direction " + *direction + ", use 'up' or 'down'")
	}
	if err != nil {
		log.GetZap().Fatal("Migration failed: " + err.Error())
	}

	log.Info("Migration completed successfully", logger.Field{Key: "direction", Value: *direction})
}
