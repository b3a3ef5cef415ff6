package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

const DefaultMinReloadInterval = 10 * time.Second

var (
	ErrDuplicateOption = errors.New("options must be unique")
	ErrNotConnected    = errors.New("no account connected")
)

type NoticeKind string

const (
	NoticeNone      NoticeKind = ""
	NoticeSuccess   NoticeKind = "success"
	NoticeInfo      NoticeKind = "info"
	NoticeCancelled NoticeKind = "cancelled"
	NoticeTransient NoticeKind = "transient"
	NoticeError     NoticeKind = "error"
)

// Notice is a message for the user about the outcome of an action.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// PollView is a loaded poll together with the connected account's vote state.
type PollView struct {
	Poll     *domain.Poll
	HasVoted bool
}

type Options struct {
	// MinReloadInterval is the minimum time between two unforced reloads.
	MinReloadInterval time.Duration
	// ConfirmTimeout bounds how long a submission is awaited. Zero waits for
	// as long as ctx allows.
	ConfirmTimeout time.Duration
	Clock          func() time.Time
	Logger         *slog.Logger
}

// App is the client application. It keeps no registry state of its own
// beyond the last successfully loaded polls.
type App struct {
	registry Registry
	signer   Signer
	sessions *SessionStore
	opts     Options

	mu       sync.Mutex
	session  domain.Session
	polls    []PollView
	lastLoad time.Time
}

func NewApp(registry Registry, signer Signer, sessions *SessionStore, opts Options) (*App, error) {
	if opts.MinReloadInterval == 0 {
		opts.MinReloadInterval = DefaultMinReloadInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	session, err := sessions.Load()
	if err != nil {
		return nil, err
	}

	return &App{
		registry: registry,
		signer:   signer,
		sessions: sessions,
		opts:     opts,
		session:  session,
	}, nil
}

func (a *App) Session() domain.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Polls returns the last loaded polls, newest first.
func (a *App) Polls() []PollView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]PollView(nil), a.polls...)
}

// LoadPolls reloads every poll unless the previous reload is more recent than
// MinReloadInterval and force is false. Polls that fail to load are skipped.
// When the poll list itself cannot be read the previous polls are kept and a
// transient notice is returned.
func (a *App) LoadPolls(ctx context.Context, force bool) Notice {
	a.mu.Lock()
	now := a.opts.Clock()
	if !force && !a.lastLoad.IsZero() && now.Sub(a.lastLoad) < a.opts.MinReloadInterval {
		a.mu.Unlock()
		return Notice{}
	}
	a.lastLoad = now
	account := a.connectedAccount()
	a.mu.Unlock()

	ids, err := a.registry.PollIDs(ctx)
	if err != nil {
		a.opts.Logger.Warn("failed to load poll list", "error", err)
		return Notice{Kind: NoticeTransient, Message: "Could not load polls, showing the last known state"}
	}

	views := make([]PollView, 0, len(ids))
	for _, id := range ids {
		poll, err := a.registry.GetPoll(ctx, id)
		if err != nil {
			a.opts.Logger.Warn("failed to load poll", "poll_id", id, "error", err)
			continue
		}

		view := PollView{Poll: poll}
		if !account.IsZero() {
			voted, err := a.registry.HasVoted(ctx, id, account)
			if err != nil {
				a.opts.Logger.Warn("failed to load vote state", "poll_id", id, "error", err)
			}
			view.HasVoted = voted
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Poll.ID > views[j].Poll.ID })

	a.mu.Lock()
	a.polls = views
	a.mu.Unlock()
	return Notice{}
}

// CreatePoll normalizes and checks the inputs, asks the signer, submits the
// poll and reloads. A declined signature yields a cancelled notice and no
// error.
func (a *App) CreatePoll(ctx context.Context, title string, options []string) (Notice, error) {
	title, options, err := NormalizePollInput(title, options)
	if err != nil {
		return Notice{Kind: NoticeError, Message: err.Error()}, err
	}

	account, err := a.requireAccount()
	if err != nil {
		return Notice{Kind: NoticeError, Message: "Connect an account first"}, err
	}

	token, err := a.signer.Authorize(ctx, Action{
		Kind:    ActionCreatePoll,
		Account: account,
		Title:   title,
		Options: options,
	})
	if err != nil {
		return a.signingFailed(err)
	}

	err = a.submit(ctx, func(ctx context.Context) error {
		_, err := a.registry.CreatePoll(ctx, token, title, options)
		return err
	})
	if notice, done := a.submitOutcome(ctx, err, "Poll created"); done {
		return notice, nil
	}
	return Notice{Kind: NoticeError, Message: err.Error()}, err
}

// Vote casts the connected account's vote and reloads. Voting twice is
// reported as an informational notice.
func (a *App) Vote(ctx context.Context, id domain.PollID, optionIndex int) (Notice, error) {
	account, err := a.requireAccount()
	if err != nil {
		return Notice{Kind: NoticeError, Message: "Connect an account first"}, err
	}

	token, err := a.signer.Authorize(ctx, Action{
		Kind:        ActionVote,
		Account:     account,
		PollID:      id,
		OptionIndex: optionIndex,
	})
	if err != nil {
		return a.signingFailed(err)
	}

	err = a.submit(ctx, func(ctx context.Context) error {
		return a.registry.Vote(ctx, token, id, optionIndex)
	})
	if errors.Is(err, domain.ErrAlreadyVoted) {
		a.LoadPolls(ctx, true)
		return Notice{Kind: NoticeInfo, Message: "You have already voted on this poll"}, nil
	}
	if notice, done := a.submitOutcome(ctx, err, "Vote recorded"); done {
		return notice, nil
	}
	return Notice{Kind: NoticeError, Message: err.Error()}, err
}

// Connect records the intent to stay connected as identity.
func (a *App) Connect(identity domain.Identity) error {
	if identity.IsZero() {
		return domain.ErrMissingIdentity
	}
	return a.saveSession(domain.Session{Intent: domain.IntentConnect, Identity: identity})
}

// Logout latches the disconnected intent so the client will not reconnect
// on its own.
func (a *App) Logout() error {
	return a.saveSession(domain.Session{Intent: domain.IntentDisconnected, Reason: domain.ReasonLogout})
}

// CancelConnect records that the user dismissed a connection request.
func (a *App) CancelConnect() error {
	return a.saveSession(domain.Session{Intent: domain.IntentDisconnected, Reason: domain.ReasonCancelled})
}

func (a *App) saveSession(session domain.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sessions.Save(session); err != nil {
		return err
	}
	a.session = session
	return nil
}

func (a *App) requireAccount() (domain.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	account := a.connectedAccount()
	if account.IsZero() {
		return "", ErrNotConnected
	}
	return account, nil
}

// connectedAccount must be called with a.mu held.
func (a *App) connectedAccount() domain.Identity {
	if !a.session.AutoConnect() {
		return ""
	}
	return a.session.Identity
}

func (a *App) signingFailed(err error) (Notice, error) {
	if errors.Is(err, ErrSigningRejected) {
		return Notice{Kind: NoticeCancelled, Message: "Transaction cancelled"}, nil
	}
	return Notice{Kind: NoticeError, Message: err.Error()}, err
}

func (a *App) submit(ctx context.Context, call func(context.Context) error) error {
	if a.opts.ConfirmTimeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, a.opts.ConfirmTimeout)
	defer cancel()
	return call(callCtx)
}

// submitOutcome handles the outcomes shared by every submission: success and
// a confirmation timeout. It reports false for anything else.
func (a *App) submitOutcome(ctx context.Context, err error, success string) (Notice, bool) {
	switch {
	case err == nil:
		a.LoadPolls(ctx, true)
		return Notice{Kind: NoticeSuccess, Message: success}, true
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return Notice{
			Kind:    NoticeTransient,
			Message: "Still waiting for confirmation, the change may appear after the next reload",
		}, true
	}
	return Notice{}, false
}

// NormalizePollInput trims the title and options, drops blank options and
// rejects options that repeat case-insensitively, then applies the registry's
// own poll rules.
func NormalizePollInput(title string, options []string) (string, []string, error) {
	title = strings.TrimSpace(title)

	seen := make(map[string]struct{}, len(options))
	cleaned := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key := strings.ToLower(opt)
		if _, dup := seen[key]; dup {
			return "", nil, fmt.Errorf("%w: %q", ErrDuplicateOption, opt)
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, opt)
	}

	if err := domain.ValidatePoll(title, cleaned); err != nil {
		return "", nil, err
	}
	return title, cleaned, nil
}
