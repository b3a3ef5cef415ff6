package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vncsmyrnk/pollregistry/config"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/events/kafka"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		slog.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
	defer consumer.Close()

	logger.Info("listening for registry events", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)
	err = consumer.Run(ctx, func(ctx context.Context, e domain.Event) error {
		attrs := []any{"seq", e.Seq, "poll_id", e.PollID, "actor", e.Actor, "at", e.OccurredAt}
		if e.Kind == domain.EventVoteCast {
			attrs = append(attrs, "option_index", e.OptionIndex)
		}
		logger.Info(string(e.Kind), attrs...)
		return nil
	})
	if err != nil {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
}
