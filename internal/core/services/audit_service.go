package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

const auditConcurrency = 8

type auditService struct {
	registry ports.RegistryService
}

func NewAuditService(registry ports.RegistryService) ports.AuditService {
	return &auditService{registry: registry}
}

// AuditAll walks polls 1..pollCount and checks every stored invariant. A poll
// that cannot be loaded is reported, not fatal.
func (s *auditService) AuditAll(ctx context.Context) ([]ports.PollReport, error) {
	count, err := s.registry.PollCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch poll count: %w", err)
	}

	reports := make([]ports.PollReport, count)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(auditConcurrency)

	for i := uint64(1); i <= count; i++ {
		i := i
		id := domain.PollID(i)
		g.Go(func() error {
			reports[i-1] = s.auditPoll(ctx, id)
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (s *auditService) auditPoll(ctx context.Context, id domain.PollID) ports.PollReport {
	report := ports.PollReport{PollID: id}

	poll, err := s.registry.GetPoll(ctx, id)
	if err != nil {
		report.LoadError = err
		return report
	}

	report.Title = poll.Title
	report.TotalVotes = poll.TotalVotes
	report.Consistent = poll.CountsConsistent()

	owned, err := s.registry.GetUserPolls(ctx, poll.Creator)
	if err != nil {
		report.LoadError = fmt.Errorf("failed to load creator index: %w", err)
		return report
	}
	for _, pid := range owned {
		if pid == id {
			report.Indexed = true
			break
		}
	}

	return report
}
