package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/pollregistry/config"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/repository/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	if flag.NArg() < 1 {
		slog.Error("a migration name is required, e.g. create_registry.up or create_registry.down")
		os.Exit(1)
	}
	migrationName := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	fileContent, err := postgres.Migration(migrationName)
	if err != nil {
		slog.Error("failed to find migration", "name", migrationName, "error", err)
		os.Exit(1)
	}

	if _, err := db.Exec(string(fileContent)); err != nil {
		slog.Error("failed to execute SQL file", "name", migrationName, "error", err)
		os.Exit(1)
	}

	slog.Info("migration file executed successfully", "name", migrationName)
}
