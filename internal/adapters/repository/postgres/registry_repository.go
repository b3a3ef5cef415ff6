package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type registryRepository struct {
	db *sql.DB
}

// NewRegistryRepository stores the registry in Postgres. Every mutation locks
// the single registry row, which serializes writers and keeps poll ids and
// event sequence numbers free of gaps.
func NewRegistryRepository(db *sql.DB) ports.RegistryRepository {
	return &registryRepository{
		db: db,
	}
}

func (r *registryRepository) CreatePoll(ctx context.Context, input ports.NewPollRecord) (*domain.Poll, []domain.Event, error) {
	if err := domain.ValidatePoll(input.Title, input.Options); err != nil {
		return nil, nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryRegistry := `
		UPDATE registry
		SET poll_count = poll_count + 1,
		    event_count = event_count + 1,
		    last_created_at = GREATEST(last_created_at, $1)
		RETURNING poll_count, event_count, last_created_at
	`
	var (
		id        int64
		seq       int64
		createdAt time.Time
	)
	err = tx.QueryRowContext(ctx, queryRegistry, input.CreatedAt).Scan(&id, &seq, &createdAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate poll id: %w", err)
	}

	poll := domain.NewPoll(domain.PollID(id), input.Title, input.Options, input.Creator, createdAt.UTC())

	queryPoll := `
		INSERT INTO polls (id, title, options, vote_counts, creator, total_votes, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`
	_, err = tx.ExecContext(ctx, queryPoll,
		id, poll.Title, pq.Array(poll.Options), pq.Array(toInt64s(poll.VoteCounts)), poll.Creator.String(), poll.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert poll: %w", err)
	}

	queryUserPoll := `INSERT INTO user_polls (creator, poll_id) VALUES ($1, $2)`
	if _, err = tx.ExecContext(ctx, queryUserPoll, poll.Creator.String(), id); err != nil {
		return nil, nil, fmt.Errorf("failed to index poll for creator: %w", err)
	}

	event := domain.NewPollCreated(poll.ID, poll.Creator, poll.CreatedAt)
	event.Seq = uint64(seq)
	if err := insertEvent(ctx, tx, event); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return poll, []domain.Event{event}, nil
}

func (r *registryRepository) Vote(ctx context.Context, input ports.VoteRecord) (*domain.Poll, []domain.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryLock := `SELECT cardinality(options) FROM polls WHERE id = $1 FOR UPDATE`
	var optionCount int
	err = tx.QueryRowContext(ctx, queryLock, int64(input.PollID)).Scan(&optionCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrPollNotFound
		}
		return nil, nil, fmt.Errorf("failed to lock poll: %w", err)
	}
	if input.OptionIndex < 0 || input.OptionIndex >= optionCount {
		return nil, nil, domain.ErrInvalidOption
	}

	queryVote := `
		INSERT INTO votes (poll_id, voter, option_index, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, voter) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, queryVote, int64(input.PollID), input.Voter.String(), input.OptionIndex, input.CastAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save vote: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save vote: %w", err)
	}
	if inserted == 0 {
		return nil, nil, domain.ErrAlreadyVoted
	}

	// Postgres arrays are 1-based.
	queryCount := `
		UPDATE polls
		SET vote_counts[$2] = vote_counts[$2] + 1,
		    total_votes = total_votes + 1
		WHERE id = $1
		RETURNING id, title, options, vote_counts, creator, total_votes, created_at
	`
	poll, err := scanPoll(tx.QueryRowContext(ctx, queryCount, int64(input.PollID), input.OptionIndex+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count vote: %w", err)
	}

	var seq int64
	querySeq := `UPDATE registry SET event_count = event_count + 1 RETURNING event_count`
	if err := tx.QueryRowContext(ctx, querySeq).Scan(&seq); err != nil {
		return nil, nil, fmt.Errorf("failed to allocate event sequence: %w", err)
	}

	event := domain.NewVoteCast(input.PollID, input.OptionIndex, input.Voter, input.CastAt.UTC())
	event.Seq = uint64(seq)
	if err := insertEvent(ctx, tx, event); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return poll, []domain.Event{event}, nil
}

func (r *registryRepository) GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, title, options, vote_counts, creator, total_votes, created_at
		FROM polls
		WHERE id = $1
	`
	poll, err := scanPoll(r.db.QueryRowContext(ctx, queryPoll, int64(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return poll, nil
}

func (r *registryRepository) HasVoted(ctx context.Context, id domain.PollID, voter domain.Identity) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE poll_id = $1 AND voter = $2)`
	var voted bool
	if err := r.db.QueryRowContext(ctx, query, int64(id), voter.String()).Scan(&voted); err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return voted, nil
}

func (r *registryRepository) PollIDs(ctx context.Context) ([]domain.PollID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM polls ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *registryRepository) UserPollIDs(ctx context.Context, creator domain.Identity) ([]domain.PollID, error) {
	query := `SELECT poll_id FROM user_polls WHERE creator = $1 ORDER BY poll_id`
	rows, err := r.db.QueryContext(ctx, query, creator.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list user polls: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *registryRepository) PollCount(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT poll_count FROM registry`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read poll count: %w", err)
	}
	return uint64(count), nil
}

func (r *registryRepository) Events(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	query := `
		SELECT seq, id, kind, poll_id, COALESCE(option_index, 0), actor, occurred_at
		FROM registry_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, int64(after), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			e      domain.Event
			seq    int64
			pollID int64
			kind   string
			actor  string
		)
		if err := rows.Scan(&seq, &e.ID, &kind, &pollID, &e.OptionIndex, &actor, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Kind = domain.EventKind(kind)
		e.PollID = domain.PollID(pollID)
		e.Actor = domain.Identity(actor)
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e domain.Event) error {
	query := `
		INSERT INTO registry_events (seq, id, kind, poll_id, option_index, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var optionIndex sql.NullInt64
	if e.Kind == domain.EventVoteCast {
		optionIndex = sql.NullInt64{Int64: int64(e.OptionIndex), Valid: true}
	}
	_, err := tx.ExecContext(ctx, query,
		int64(e.Seq), e.ID, string(e.Kind), int64(e.PollID), optionIndex, e.Actor.String(), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func scanPoll(row *sql.Row) (*domain.Poll, error) {
	var (
		poll    domain.Poll
		id      int64
		counts  pq.Int64Array
		creator string
		total   int64
	)
	err := row.Scan(&id, &poll.Title, pq.Array(&poll.Options), &counts, &creator, &total, &poll.CreatedAt)
	if err != nil {
		return nil, err
	}

	poll.ID = domain.PollID(id)
	poll.Creator = domain.Identity(creator)
	poll.TotalVotes = uint64(total)
	poll.CreatedAt = poll.CreatedAt.UTC()
	poll.VoteCounts = make([]uint64, len(counts))
	for i, c := range counts {
		poll.VoteCounts[i] = uint64(c)
	}
	return &poll, nil
}

func scanIDs(rows *sql.Rows) ([]domain.PollID, error) {
	ids := []domain.PollID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan poll id: %w", err)
		}
		ids = append(ids, domain.PollID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poll ids: %w", err)
	}
	return ids, nil
}

func toInt64s(in []uint64) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
