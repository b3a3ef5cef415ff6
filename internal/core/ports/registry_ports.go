package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

// RegistryRepository is the execution substrate of the registry. CreatePoll
// and Vote must apply their whole effect atomically or not at all, and must be
// serialized against each other.
type RegistryRepository interface {
	CreatePoll(ctx context.Context, input NewPollRecord) (*domain.Poll, []domain.Event, error)
	Vote(ctx context.Context, input VoteRecord) (*domain.Poll, []domain.Event, error)

	GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error)
	HasVoted(ctx context.Context, id domain.PollID, voter domain.Identity) (bool, error)
	PollIDs(ctx context.Context) ([]domain.PollID, error)
	UserPollIDs(ctx context.Context, creator domain.Identity) ([]domain.PollID, error)
	PollCount(ctx context.Context) (uint64, error)
	Events(ctx context.Context, after uint64, limit int) ([]domain.Event, error)
}

type NewPollRecord struct {
	Title     string
	Options   []string
	Creator   domain.Identity
	CreatedAt time.Time
}

type VoteRecord struct {
	PollID      domain.PollID
	OptionIndex int
	Voter       domain.Identity
	CastAt      time.Time
}

type CreatePollInput struct {
	Title   string
	Options []string
	Caller  domain.Identity
}

type VoteInput struct {
	PollID      domain.PollID
	OptionIndex int
	Caller      domain.Identity
}

type RegistryService interface {
	CreatePoll(ctx context.Context, input CreatePollInput) (domain.PollID, error)
	Vote(ctx context.Context, input VoteInput) error
	GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error)
	HasVoted(ctx context.Context, id domain.PollID, identity domain.Identity) (bool, error)
	GetAllPolls(ctx context.Context) ([]domain.PollID, error)
	GetUserPolls(ctx context.Context, identity domain.Identity) ([]domain.PollID, error)
	PollCount(ctx context.Context) (uint64, error)
	Events(ctx context.Context, after uint64, limit int) ([]domain.Event, error)
}
