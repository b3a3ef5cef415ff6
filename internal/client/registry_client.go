package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

// Registry is the part of the node API the client application needs.
type Registry interface {
	PollIDs(ctx context.Context) ([]domain.PollID, error)
	GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error)
	HasVoted(ctx context.Context, id domain.PollID, identity domain.Identity) (bool, error)
	CreatePoll(ctx context.Context, token, title string, options []string) (domain.PollID, error)
	Vote(ctx context.Context, token string, id domain.PollID, optionIndex int) error
}

// APIError is a non-2xx answer from the registry node. It unwraps to the
// matching domain error when the node reported a known rejection.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry responded %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	for _, known := range knownRejections {
		if known.Error() == e.Message {
			return known
		}
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrPollNotFound
	case http.StatusConflict:
		return domain.ErrAlreadyVoted
	case http.StatusUnauthorized:
		return domain.ErrMissingIdentity
	case http.StatusBadRequest:
		return domain.ErrValidation
	}
	return nil
}

var knownRejections = []error{
	domain.ErrEmptyTitle,
	domain.ErrTooFewOptions,
	domain.ErrTooManyOptions,
	domain.ErrEmptyOption,
	domain.ErrInvalidOption,
	domain.ErrInvalidPollID,
	domain.ErrMissingIdentity,
	domain.ErrPollNotFound,
	domain.ErrAlreadyVoted,
}

// RegistryClient talks to the REST API of a registry node.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRegistryClient(baseURL string, httpClient *http.Client) *RegistryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *RegistryClient) PollIDs(ctx context.Context) ([]domain.PollID, error) {
	var ids []domain.PollID
	if err := c.do(ctx, http.MethodGet, "/api/polls", "", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *RegistryClient) PollCount(ctx context.Context) (uint64, error) {
	var resp struct {
		Count uint64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/polls/count", "", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *RegistryClient) GetPoll(ctx context.Context, id domain.PollID) (*domain.Poll, error) {
	var poll domain.Poll
	if err := c.do(ctx, http.MethodGet, "/api/polls/"+id.String(), "", nil, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// HasVoted is false without asking the node when identity is empty.
func (c *RegistryClient) HasVoted(ctx context.Context, id domain.PollID, identity domain.Identity) (bool, error) {
	if identity.IsZero() {
		return false, nil
	}
	var resp struct {
		HasVoted bool `json:"has_voted"`
	}
	path := "/api/polls/" + id.String() + "/voters/" + url.PathEscape(identity.String())
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return false, err
	}
	return resp.HasVoted, nil
}

func (c *RegistryClient) UserPolls(ctx context.Context, identity domain.Identity) ([]domain.PollID, error) {
	var ids []domain.PollID
	path := "/api/users/" + url.PathEscape(identity.String()) + "/polls"
	if err := c.do(ctx, http.MethodGet, path, "", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *RegistryClient) CreatePoll(ctx context.Context, token, title string, options []string) (domain.PollID, error) {
	req := struct {
		Title   string   `json:"title"`
		Options []string `json:"options"`
	}{Title: title, Options: options}

	var resp struct {
		ID domain.PollID `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/polls", token, req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *RegistryClient) Vote(ctx context.Context, token string, id domain.PollID, optionIndex int) error {
	req := struct {
		OptionIndex int `json:"option_index"`
	}{OptionIndex: optionIndex}
	return c.do(ctx, http.MethodPost, "/api/polls/"+id.String()+"/votes", token, req, nil)
}

func (c *RegistryClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
