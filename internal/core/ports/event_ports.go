package ports

import (
	"context"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

// EventPublisher forwards committed registry events to external listeners.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
	Close() error
}

type EventHandler func(ctx context.Context, event domain.Event) error
