package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

// ErrSigningRejected means the holder of the account declined to sign. It is
// a normal outcome, not a failure.
var ErrSigningRejected = errors.New("signature request rejected")

type ActionKind string

const (
	ActionCreatePoll ActionKind = "create_poll"
	ActionVote       ActionKind = "vote"
)

// Action is what the signing agent is asked to authorize.
type Action struct {
	Kind        ActionKind
	Account     domain.Identity
	PollID      domain.PollID
	OptionIndex int
	Title       string
	Options     []string
}

func (a Action) Describe() string {
	switch a.Kind {
	case ActionCreatePoll:
		return fmt.Sprintf("create poll %q with options [%s] as %s", a.Title, strings.Join(a.Options, ", "), a.Account.Short())
	case ActionVote:
		return fmt.Sprintf("vote for option %d on poll %d as %s", a.OptionIndex, a.PollID, a.Account.Short())
	}
	return string(a.Kind)
}

// Signer is the signing agent. Authorize returns a credential the registry
// accepts for the action's account.
type Signer interface {
	Authorize(ctx context.Context, action Action) (string, error)
}

// TokenSigner holds the key material and signs without asking.
type TokenSigner struct {
	auth ports.AuthService
	ttl  time.Duration
}

func NewTokenSigner(auth ports.AuthService, ttl time.Duration) *TokenSigner {
	return &TokenSigner{auth: auth, ttl: ttl}
}

func (s *TokenSigner) Authorize(ctx context.Context, action Action) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if action.Account.IsZero() {
		return "", domain.ErrMissingIdentity
	}
	return s.auth.IssueToken(action.Account, s.ttl)
}

// PromptSigner asks for confirmation on out and reads the answer from in
// before delegating to next. Anything but yes is a rejection.
type PromptSigner struct {
	next Signer
	in   *bufio.Reader
	out  io.Writer
}

func NewPromptSigner(next Signer, in io.Reader, out io.Writer) *PromptSigner {
	return &PromptSigner{next: next, in: bufio.NewReader(in), out: out}
}

func (s *PromptSigner) Authorize(ctx context.Context, action Action) (string, error) {
	fmt.Fprintf(s.out, "Sign: %s? [y/N] ", action.Describe())

	answer, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return s.next.Authorize(ctx, action)
	}
	return "", ErrSigningRejected
}
