package graph

import (
	"context"
	"math"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	handler "github.com/vncsmyrnk/pollregistry/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

// NewHandler parses the schema against a resolver over service. Identity for
// mutations comes from the request context set by the HTTP auth middleware.
func NewHandler(service ports.RegistryService) *relay.Handler {
	schema := graphql.MustParseSchema(schemaString, &Resolver{service: service})
	return &relay.Handler{Schema: schema}
}

type Resolver struct {
	service ports.RegistryService
}

func (r *Resolver) Poll(ctx context.Context, args struct{ ID graphql.ID }) (*pollResolver, error) {
	id, err := domain.ParsePollID(string(args.ID))
	if err != nil {
		return nil, domain.ErrPollNotFound
	}
	poll, err := r.service.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pollResolver{poll: poll}, nil
}

func (r *Resolver) Polls(ctx context.Context) ([]*pollResolver, error) {
	ids, err := r.service.GetAllPolls(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*pollResolver, 0, len(ids))
	for _, id := range ids {
		poll, err := r.service.GetPoll(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, &pollResolver{poll: poll})
	}
	return out, nil
}

func (r *Resolver) PollIds(ctx context.Context) ([]graphql.ID, error) {
	ids, err := r.service.GetAllPolls(ctx)
	if err != nil {
		return nil, err
	}
	return toGraphIDs(ids), nil
}

func (r *Resolver) UserPolls(ctx context.Context, args struct{ Creator string }) ([]graphql.ID, error) {
	ids, err := r.service.GetUserPolls(ctx, domain.NewIdentity(args.Creator))
	if err != nil {
		return nil, err
	}
	return toGraphIDs(ids), nil
}

func (r *Resolver) HasVoted(ctx context.Context, args struct {
	PollID graphql.ID
	Voter  string
}) (bool, error) {
	id, err := domain.ParsePollID(string(args.PollID))
	if err != nil {
		return false, nil
	}
	return r.service.HasVoted(ctx, id, domain.NewIdentity(args.Voter))
}

func (r *Resolver) PollCount(ctx context.Context) (int32, error) {
	count, err := r.service.PollCount(ctx)
	if err != nil {
		return 0, err
	}
	return clampInt32(count), nil
}

func (r *Resolver) Events(ctx context.Context, args struct {
	After *int32
	Limit *int32
}) ([]*eventResolver, error) {
	var (
		after uint64
		limit int
	)
	if args.After != nil && *args.After > 0 {
		after = uint64(*args.After)
	}
	if args.Limit != nil {
		limit = int(*args.Limit)
	}

	events, err := r.service.Events(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*eventResolver, len(events))
	for i := range events {
		out[i] = &eventResolver{event: events[i]}
	}
	return out, nil
}

func (r *Resolver) CreatePoll(ctx context.Context, args struct {
	Title   string
	Options []string
}) (graphql.ID, error) {
	caller, _ := handler.IdentityFrom(ctx)
	id, err := r.service.CreatePoll(ctx, ports.CreatePollInput{
		Title:   args.Title,
		Options: args.Options,
		Caller:  caller,
	})
	if err != nil {
		return "", err
	}
	return graphql.ID(id.String()), nil
}

func (r *Resolver) Vote(ctx context.Context, args struct {
	PollID      graphql.ID
	OptionIndex int32
}) (*pollResolver, error) {
	id, err := domain.ParsePollID(string(args.PollID))
	if err != nil {
		return nil, domain.ErrPollNotFound
	}
	caller, _ := handler.IdentityFrom(ctx)

	err = r.service.Vote(ctx, ports.VoteInput{
		PollID:      id,
		OptionIndex: int(args.OptionIndex),
		Caller:      caller,
	})
	if err != nil {
		return nil, err
	}

	poll, err := r.service.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pollResolver{poll: poll}, nil
}

type pollResolver struct {
	poll *domain.Poll
}

func (p *pollResolver) ID() graphql.ID    { return graphql.ID(p.poll.ID.String()) }
func (p *pollResolver) Title() string     { return p.poll.Title }
func (p *pollResolver) Options() []string { return p.poll.Options }
func (p *pollResolver) Creator() string   { return p.poll.Creator.String() }
func (p *pollResolver) TotalVotes() int32 { return clampInt32(p.poll.TotalVotes) }
func (p *pollResolver) CreatedAt() string { return p.poll.CreatedAt.Format(time.RFC3339) }

func (p *pollResolver) VoteCounts() []int32 {
	out := make([]int32, len(p.poll.VoteCounts))
	for i, c := range p.poll.VoteCounts {
		out[i] = clampInt32(c)
	}
	return out
}

type eventResolver struct {
	event domain.Event
}

func (e *eventResolver) Seq() int32         { return clampInt32(e.event.Seq) }
func (e *eventResolver) ID() graphql.ID     { return graphql.ID(e.event.ID.String()) }
func (e *eventResolver) Kind() string       { return string(e.event.Kind) }
func (e *eventResolver) PollID() graphql.ID { return graphql.ID(e.event.PollID.String()) }
func (e *eventResolver) Actor() string      { return e.event.Actor.String() }
func (e *eventResolver) OccurredAt() string { return e.event.OccurredAt.Format(time.RFC3339) }

func (e *eventResolver) OptionIndex() *int32 {
	if e.event.Kind != domain.EventVoteCast {
		return nil
	}
	idx := int32(e.event.OptionIndex)
	return &idx
}

func toGraphIDs(ids []domain.PollID) []graphql.ID {
	out := make([]graphql.ID, len(ids))
	for i, id := range ids {
		out[i] = graphql.ID(id.String())
	}
	return out
}

// clampInt32 saturates counters at the GraphQL Int maximum.
func clampInt32(n uint64) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
