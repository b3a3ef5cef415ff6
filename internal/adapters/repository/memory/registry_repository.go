package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type voteKey struct {
	pollID domain.PollID
	voter  domain.Identity
}

// registryRepository keeps the whole registry in process memory. One mutex
// serializes every call, which is the only concurrency guarantee the registry
// logic relies on.
type registryRepository struct {
	mu sync.Mutex

	polls       map[domain.PollID]*domain.Poll
	votes       map[voteKey]bool
	allPolls    []domain.PollID
	userPolls   map[domain.Identity][]domain.PollID
	events      []domain.Event
	lastCreated time.Time
}

func NewRegistryRepository() ports.RegistryRepository {
	return &registryRepository{
		polls:     make(map[domain.PollID]*domain.Poll),
		votes:     make(map[voteKey]bool),
		userPolls: make(map[domain.Identity][]domain.PollID),
	}
}

func (r *registryRepository) CreatePoll(ctx context.Context, input ports.NewPollRecord) (*domain.Poll, []domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidatePoll(input.Title, input.Options); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := input.CreatedAt
	if createdAt.Before(r.lastCreated) {
		createdAt = r.lastCreated
	}

	id := domain.PollID(len(r.allPolls) + 1)
	poll := domain.NewPoll(id, input.Title, input.Options, input.Creator, createdAt)

	r.polls[id] = poll
	r.allPolls = append(r.allPolls, id)
	r.userPolls[input.Creator] = append(r.userPolls[input.Creator], id)
	r.lastCreated = createdAt

	event := r.appendEvent(domain.NewPollCreated(id, input.Creator, createdAt))

	return poll.Clone(), []domain.Event{event}, nil
}

func (r *registryRepository) Vote(ctx context.Context, input ports.VoteRecord) (*domain.Poll, []domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	poll, ok := r.polls[input.PollID]
	if !ok {
		return nil, nil, domain.ErrPollNotFound
	}
	if !poll.HasOption(input.OptionIndex) {
		return nil, nil, domain.ErrInvalidOption
	}
	key := voteKey{pollID: input.PollID, voter: input.Voter}
	if r.votes[key] {
		return nil, nil, domain.ErrAlreadyVoted
	}

	// All checks passed; nothing below can fail.
	_ = poll.RecordVote(input.OptionIndex)
	r.votes[key] = true

	event := r.appendEvent(domain.NewVoteCast(input.PollID, input.OptionIndex, input.Voter, input.CastAt))

	return poll.Clone(), []domain.Event{event}, nil
}

func (r *registryRepository) GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	poll, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return poll.Clone(), nil
}

func (r *registryRepository) HasVoted(ctx context.Context, id domain.PollID, voter domain.Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.votes[voteKey{pollID: id, voter: voter}], nil
}

func (r *registryRepository) PollIDs(ctx context.Context) ([]domain.PollID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.PollID{}, r.allPolls...), nil
}

func (r *registryRepository) UserPollIDs(ctx context.Context, creator domain.Identity) ([]domain.PollID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.PollID{}, r.userPolls[creator]...), nil
}

func (r *registryRepository) PollCount(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return uint64(len(r.allPolls)), nil
}

func (r *registryRepository) Events(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if after >= uint64(len(r.events)) {
		return []domain.Event{}, nil
	}
	tail := r.events[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	return append([]domain.Event{}, tail...), nil
}

// appendEvent must be called with mu held.
func (r *registryRepository) appendEvent(e domain.Event) domain.Event {
	e.Seq = uint64(len(r.events) + 1)
	r.events = append(r.events, e)
	return e
}
