package ports

import (
	"context"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

type PollReport struct {
	PollID     domain.PollID
	Title      string
	TotalVotes uint64
	Consistent bool
	Indexed    bool
	LoadError  error
}

func (r PollReport) OK() bool {
	return r.LoadError == nil && r.Consistent && r.Indexed
}

type AuditService interface {
	AuditAll(ctx context.Context) ([]PollReport, error)
}
