package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/pollregistry/config"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/pollregistry/internal/core/services"
)

// pollaudit walks every poll in a Postgres registry and reports polls whose
// counters disagree or that are missing from their creator's index.
func main() {
	configPath := flag.String("config", "", "path to a config file")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall audit timeout")
	flag.Parse()

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	registry := services.NewRegistryService(postgres.NewRegistryRepository(db))
	reports, err := services.NewAuditService(registry).AuditAll(ctx)
	if err != nil {
		slog.Error("audit failed", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, report := range reports {
		status := "ok"
		if !report.OK() {
			status = "FAILED"
			failed++
		}
		fmt.Printf("poll %d [%s] %q votes=%d consistent=%t indexed=%t",
			report.PollID, status, report.Title, report.TotalVotes, report.Consistent, report.Indexed)
		if report.LoadError != nil {
			fmt.Printf(" error=%q", report.LoadError.Error())
		}
		fmt.Println()
	}

	slog.Info("audit finished", "polls", len(reports), "failed", failed)
	if failed > 0 {
		os.Exit(2)
	}
}
