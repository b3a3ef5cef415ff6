package client

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

// fakeRegistry is an in-memory Registry with switchable failures.
type fakeRegistry struct {
	mu       sync.Mutex
	polls    map[domain.PollID]*domain.Poll
	votes    map[domain.PollID]map[domain.Identity]bool
	listErr  error
	broken   map[domain.PollID]bool
	listHits int
	voteErr  error
	block    bool
	tokens   []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		polls:  make(map[domain.PollID]*domain.Poll),
		votes:  make(map[domain.PollID]map[domain.Identity]bool),
		broken: make(map[domain.PollID]bool),
	}
}

func (f *fakeRegistry) add(title string, options ...string) domain.PollID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := domain.PollID(len(f.polls) + 1)
	f.polls[id] = domain.NewPoll(id, title, options, "0xcreator", time.Unix(int64(id), 0))
	return id
}

func (f *fakeRegistry) PollIDs(ctx context.Context) ([]domain.PollID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]domain.PollID, 0, len(f.polls))
	for i := 1; i <= len(f.polls); i++ {
		ids = append(ids, domain.PollID(i))
	}
	return ids, nil
}

func (f *fakeRegistry) GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[id] {
		return nil, errors.New("decode failure")
	}
	p, ok := f.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return p.Clone(), nil
}

func (f *fakeRegistry) HasVoted(ctx context.Context, id domain.PollID, identity domain.Identity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.votes[id][identity], nil
}

func (f *fakeRegistry) CreatePoll(ctx context.Context, token, title string, options []string) (domain.PollID, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	return f.add(title, options...), nil
}

func (f *fakeRegistry) Vote(ctx context.Context, token string, id domain.PollID, optionIndex int) error {
	f.mu.Lock()
	block := f.block
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voteErr != nil {
		return f.voteErr
	}
	voter := domain.Identity(token)
	if f.votes[id][voter] {
		return domain.ErrAlreadyVoted
	}
	if f.votes[id] == nil {
		f.votes[id] = make(map[domain.Identity]bool)
	}
	f.votes[id][voter] = true
	return f.polls[id].RecordVote(optionIndex)
}

// echoSigner uses the account as the token, or rejects everything.
type echoSigner struct {
	reject bool
	asked  []Action
}

func (s *echoSigner) Authorize(ctx context.Context, action Action) (string, error) {
	s.asked = append(s.asked, action)
	if s.reject {
		return "", ErrSigningRejected
	}
	return action.Account.String(), nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestApp(t *testing.T, registry Registry, signer Signer, opts Options) *App {
	t.Helper()
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.yaml"))
	app, err := NewApp(registry, signer, store, opts)
	require.NoError(t, err)
	return app
}

func TestLoadPollsNewestFirstSkippingFailures(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("first", "A", "B")
	reg.add("second", "A", "B")
	reg.add("third", "A", "B")
	reg.broken[2] = true

	app := newTestApp(t, reg, &echoSigner{}, Options{})

	notice := app.LoadPolls(context.Background(), true)
	assert.Equal(t, NoticeNone, notice.Kind)

	polls := app.Polls()
	require.Len(t, polls, 2)
	assert.Equal(t, "third", polls[0].Poll.Title)
	assert.Equal(t, "first", polls[1].Poll.Title)
}

func TestLoadPollsThrottle(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("only", "A", "B")
	clock := &fakeClock{now: time.Unix(1000, 0)}

	app := newTestApp(t, reg, &echoSigner{}, Options{MinReloadInterval: 10 * time.Second, Clock: clock.Now})
	ctx := context.Background()

	app.LoadPolls(ctx, false)
	app.LoadPolls(ctx, false)
	assert.Equal(t, 1, reg.listHits)

	clock.now = clock.now.Add(9 * time.Second)
	app.LoadPolls(ctx, false)
	assert.Equal(t, 1, reg.listHits)

	app.LoadPolls(ctx, true)
	assert.Equal(t, 2, reg.listHits)

	clock.now = clock.now.Add(10 * time.Second)
	app.LoadPolls(ctx, false)
	assert.Equal(t, 3, reg.listHits)
}

func TestLoadPollsKeepsPreviousOnFailure(t *testing.T) {
	reg := newFakeRegistry()
	reg.add("kept", "A", "B")

	app := newTestApp(t, reg, &echoSigner{}, Options{})
	app.LoadPolls(context.Background(), true)
	require.Len(t, app.Polls(), 1)

	reg.listErr = errors.New("node unreachable")
	notice := app.LoadPolls(context.Background(), true)

	assert.Equal(t, NoticeTransient, notice.Kind)
	require.Len(t, app.Polls(), 1)
	assert.Equal(t, "kept", app.Polls()[0].Poll.Title)
}

func TestCreatePoll(t *testing.T) {
	reg := newFakeRegistry()
	signer := &echoSigner{}
	app := newTestApp(t, reg, signer, Options{})
	require.NoError(t, app.Connect("0xA11CE"))

	notice, err := app.CreatePoll(context.Background(), "  Favorite Color?  ", []string{" Red ", "", "Blue", "   "})
	require.NoError(t, err)
	assert.Equal(t, NoticeSuccess, notice.Kind)

	require.Len(t, signer.asked, 1)
	assert.Equal(t, "Favorite Color?", signer.asked[0].Title)
	assert.Equal(t, []string{"Red", "Blue"}, signer.asked[0].Options)
	assert.Equal(t, domain.Identity("0xA11CE"), signer.asked[0].Account)

	polls := app.Polls()
	require.Len(t, polls, 1, "a successful create reloads")
	assert.Equal(t, "Favorite Color?", polls[0].Poll.Title)
}

func TestCreatePollClientSideValidation(t *testing.T) {
	reg := newFakeRegistry()
	signer := &echoSigner{}
	app := newTestApp(t, reg, signer, Options{})
	require.NoError(t, app.Connect("0xa11ce"))

	_, err := app.CreatePoll(context.Background(), "T", []string{"Red", "red"})
	assert.ErrorIs(t, err, ErrDuplicateOption)

	_, err = app.CreatePoll(context.Background(), "T", []string{"Red", "  "})
	assert.ErrorIs(t, err, domain.ErrTooFewOptions)

	_, err = app.CreatePoll(context.Background(), "   ", []string{"A", "B"})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	assert.Empty(t, signer.asked)
	assert.Empty(t, reg.polls)
}

func TestSigningRejectionIsANotice(t *testing.T) {
	reg := newFakeRegistry()
	id := reg.add("T", "A", "B")
	app := newTestApp(t, reg, &echoSigner{reject: true}, Options{})
	require.NoError(t, app.Connect("0xb0b"))

	notice, err := app.Vote(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, NoticeCancelled, notice.Kind)

	notice, err = app.CreatePoll(context.Background(), "T", []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, NoticeCancelled, notice.Kind)

	assert.Empty(t, reg.tokens)
}

func TestVote(t *testing.T) {
	reg := newFakeRegistry()
	id := reg.add("T", "A", "B")
	app := newTestApp(t, reg, &echoSigner{}, Options{})
	require.NoError(t, app.Connect("0xb0b"))

	notice, err := app.Vote(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, NoticeSuccess, notice.Kind)

	polls := app.Polls()
	require.Len(t, polls, 1)
	assert.True(t, polls[0].HasVoted)
	assert.Equal(t, []uint64{0, 1}, polls[0].Poll.VoteCounts)

	notice, err = app.Vote(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, NoticeInfo, notice.Kind)
	assert.Equal(t, "You have already voted on this poll", notice.Message)
}

func TestVoteErrorsAreReturned(t *testing.T) {
	reg := newFakeRegistry()
	app := newTestApp(t, reg, &echoSigner{}, Options{})
	require.NoError(t, app.Connect("0xb0b"))

	reg.voteErr = domain.ErrPollNotFound
	notice, err := app.Vote(context.Background(), 5, 0)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
	assert.Equal(t, NoticeError, notice.Kind)
}

func TestVoteConfirmTimeout(t *testing.T) {
	reg := newFakeRegistry()
	id := reg.add("T", "A", "B")
	reg.block = true
	app := newTestApp(t, reg, &echoSigner{}, Options{ConfirmTimeout: 20 * time.Millisecond})
	require.NoError(t, app.Connect("0xb0b"))

	notice, err := app.Vote(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, NoticeTransient, notice.Kind)
}

func TestMutationsNeedAConnectedAccount(t *testing.T) {
	reg := newFakeRegistry()
	id := reg.add("T", "A", "B")
	signer := &echoSigner{}
	app := newTestApp(t, reg, signer, Options{})

	_, err := app.Vote(context.Background(), id, 0)
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, app.Connect("0xb0b"))
	require.NoError(t, app.Logout())

	_, err = app.Vote(context.Background(), id, 0)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, signer.asked)
}

func TestSessionIntentPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	reg := newFakeRegistry()

	app, err := NewApp(reg, &echoSigner{}, NewSessionStore(path), Options{})
	require.NoError(t, err)
	assert.True(t, app.Session().AutoConnect())

	require.NoError(t, app.Connect("0xb0b"))
	require.NoError(t, app.CancelConnect())

	reopened, err := NewApp(reg, &echoSigner{}, NewSessionStore(path), Options{})
	require.NoError(t, err)
	session := reopened.Session()
	assert.False(t, session.AutoConnect())
	assert.Equal(t, domain.ReasonCancelled, session.Reason)

	require.NoError(t, reopened.Connect("0xb0b"))
	reopened, err = NewApp(reg, &echoSigner{}, NewSessionStore(path), Options{})
	require.NoError(t, err)
	assert.True(t, reopened.Session().AutoConnect())
	assert.Equal(t, domain.Identity("0xb0b"), reopened.Session().Identity)

	assert.ErrorIs(t, reopened.Connect(""), domain.ErrMissingIdentity)
}

func TestNormalizePollInput(t *testing.T) {
	title, options, err := NormalizePollInput(" Lunch ", []string{"Pizza", " Sushi ", "", "Tacos"})
	require.NoError(t, err)
	assert.Equal(t, "Lunch", title)
	assert.Equal(t, []string{"Pizza", "Sushi", "Tacos"}, options)

	_, _, err = NormalizePollInput("Lunch", []string{"Pizza", "PIZZA "})
	assert.ErrorIs(t, err, ErrDuplicateOption)

	many := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}
	_, _, err = NormalizePollInput("T", many)
	assert.ErrorIs(t, err, domain.ErrTooManyOptions)
}
