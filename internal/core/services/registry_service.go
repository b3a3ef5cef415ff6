package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

const maxEventPage = 500

type registryService struct {
	repo      ports.RegistryRepository
	publisher ports.EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

type RegistryOption func(*registryService)

// WithPublisher forwards committed events to p.
func WithPublisher(p ports.EventPublisher) RegistryOption {
	return func(s *registryService) { s.publisher = p }
}

// WithClock overrides the block time source.
func WithClock(now func() time.Time) RegistryOption {
	return func(s *registryService) { s.now = now }
}

func WithLogger(l *slog.Logger) RegistryOption {
	return func(s *registryService) { s.logger = l }
}

func NewRegistryService(repo ports.RegistryRepository, opts ...RegistryOption) ports.RegistryService {
	s := &registryService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *registryService) CreatePoll(ctx context.Context, input ports.CreatePollInput) (domain.PollID, error) {
	if input.Caller.IsZero() {
		return 0, domain.ErrMissingIdentity
	}
	if err := domain.ValidatePoll(input.Title, input.Options); err != nil {
		return 0, err
	}

	poll, events, err := s.repo.CreatePoll(ctx, ports.NewPollRecord{
		Title:     input.Title,
		Options:   input.Options,
		Creator:   input.Caller,
		CreatedAt: s.now(),
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("poll created", "poll_id", poll.ID, "creator", poll.Creator, "options", len(poll.Options))
	s.publish(ctx, events)
	return poll.ID, nil
}

func (s *registryService) Vote(ctx context.Context, input ports.VoteInput) error {
	if input.Caller.IsZero() {
		return domain.ErrMissingIdentity
	}
	if input.PollID == 0 {
		return domain.ErrPollNotFound
	}

	poll, events, err := s.repo.Vote(ctx, ports.VoteRecord{
		PollID:      input.PollID,
		OptionIndex: input.OptionIndex,
		Voter:       input.Caller,
		CastAt:      s.now(),
	})
	if err != nil {
		return err
	}

	s.logger.Info("vote cast", "poll_id", poll.ID, "option", input.OptionIndex, "voter", input.Caller, "total_votes", poll.TotalVotes)
	s.publish(ctx, events)
	return nil
}

func (s *registryService) GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error) {
	if id == 0 {
		return nil, domain.ErrPollNotFound
	}
	return s.repo.GetPoll(ctx, id)
}

// HasVoted never reports an unknown poll or identity as an error; it is a
// probe, unlike GetPoll.
func (s *registryService) HasVoted(ctx context.Context, id domain.PollID, identity domain.Identity) (bool, error) {
	if id == 0 || identity.IsZero() {
		return false, nil
	}
	return s.repo.HasVoted(ctx, id, identity)
}

func (s *registryService) GetAllPolls(ctx context.Context) ([]domain.PollID, error) {
	return s.repo.PollIDs(ctx)
}

func (s *registryService) GetUserPolls(ctx context.Context, identity domain.Identity) ([]domain.PollID, error) {
	if identity.IsZero() {
		return []domain.PollID{}, nil
	}
	return s.repo.UserPollIDs(ctx, identity)
}

func (s *registryService) PollCount(ctx context.Context) (uint64, error) {
	return s.repo.PollCount(ctx)
}

func (s *registryService) Events(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > maxEventPage {
		limit = maxEventPage
	}
	events, err := s.repo.Events(ctx, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}

// publish runs after the state change is committed, so a broker failure only
// costs external listeners a notification.
func (s *registryService) publish(ctx context.Context, events []domain.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish registry events", "count", len(events), "error", err)
	}
}
