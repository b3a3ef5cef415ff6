package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

const (
	PollKeyPrefix = "pollregistry:poll:"
	DefaultTTL    = time.Minute
)

// storeIfNewer only replaces a cached snapshot with one that has seen at least
// as many votes. Totals never decrease, so a slow read-through fill cannot
// overwrite the snapshot written by a later vote.
var storeIfNewer = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and type(cached) == "table" and tonumber(cached["total_votes"]) ~= nil
		and tonumber(cached["total_votes"]) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// cachedRegistry puts a read-through snapshot cache in front of GetPoll.
// Votes refresh the snapshot with the post-vote poll. Every other call goes
// straight to the wrapped store. Redis failures are logged and the store
// answers instead.
type cachedRegistry struct {
	ports.RegistryRepository

	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRegistry(next ports.RegistryRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) ports.RegistryRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedRegistry{
		RegistryRepository: next,
		client:             client,
		ttl:                ttl,
		logger:             logger,
	}
}

func PollKey(id domain.PollID) string {
	return PollKeyPrefix + id.String()
}

func (c *cachedRegistry) GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error) {
	poll, found, err := c.lookup(ctx, id)
	if err != nil {
		c.logger.Warn("poll cache read failed", "poll_id", id, "error", err)
	}
	if found {
		return poll, nil
	}

	poll, err = c.RegistryRepository.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, poll); err != nil {
		c.logger.Warn("poll cache write failed", "poll_id", id, "error", err)
	}
	return poll, nil
}

func (c *cachedRegistry) Vote(ctx context.Context, input ports.VoteRecord) (*domain.Poll, []domain.Event, error) {
	poll, events, err := c.RegistryRepository.Vote(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	if err := c.store(ctx, poll); err != nil {
		c.logger.Warn("poll cache refresh failed", "poll_id", input.PollID, "error", err)
		if err := c.client.Del(ctx, PollKey(input.PollID)).Err(); err != nil {
			c.logger.Warn("poll cache invalidation failed", "poll_id", input.PollID, "error", err)
		}
	}
	return poll, events, nil
}

func (c *cachedRegistry) lookup(ctx context.Context, id domain.PollID) (*domain.Poll, bool, error) {
	data, err := c.client.Get(ctx, PollKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var poll domain.Poll
	if err := json.Unmarshal(data, &poll); err != nil {
		return nil, false, err
	}
	return &poll, true, nil
}

func (c *cachedRegistry) store(ctx context.Context, poll *domain.Poll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return err
	}
	keys := []string{PollKey(poll.ID)}
	return storeIfNewer.Run(ctx, c.client, keys, data, poll.TotalVotes, c.ttl.Milliseconds()).Err()
}

// NewClient opens a client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
