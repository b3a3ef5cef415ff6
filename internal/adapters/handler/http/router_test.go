package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/vncsmyrnk/pollregistry/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollregistry/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
	"github.com/vncsmyrnk/pollregistry/internal/core/services"
)

type TestApp struct {
	Server *httptest.Server
	Client *http.Client
	Auth   ports.AuthService
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	auth := services.NewAuthService("test-secret")
	registry := services.NewRegistryService(memory.NewRegistryRepository())

	router := handler.NewHandler(
		handler.NewPollHandler(registry),
		handler.NewVoteHandler(registry),
		handler.NewEventHandler(registry),
		handler.NewAuthHandler("", http.SameSiteLaxMode),
		handler.RouterConfig{Auth: auth, AllowedOrigins: []string{"*"}},
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestApp{Server: server, Client: server.Client(), Auth: auth}
}

func (app *TestApp) token(t *testing.T, identity domain.Identity) string {
	t.Helper()
	token, err := app.Auth.IssueToken(identity, 15*time.Minute)
	require.NoError(t, err)
	return token
}

func (app *TestApp) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func bodyText(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

// TestPollFlow covers create -> get -> vote -> duplicate vote -> has voted.
func TestPollFlow(t *testing.T) {
	app := setupTestApp(t)
	alice := app.token(t, "0xA11CE")
	bob := app.token(t, "0xb0b")

	resp := app.do(t, http.MethodPost, "/api/polls", alice, map[string]interface{}{
		"title":   "Favorite Color?",
		"options": []string{"Red", "Blue", "Green"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID domain.PollID `json:"id"`
	}
	decode(t, resp, &created)
	assert.Equal(t, domain.PollID(1), created.ID)

	resp = app.do(t, http.MethodPost, "/api/polls/1/votes", bob, map[string]int{"option_index": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/polls/1/votes", bob, map[string]int{"option_index": 0})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already voted on this poll", bodyText(t, resp))

	resp = app.do(t, http.MethodGet, "/api/polls/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var poll domain.Poll
	decode(t, resp, &poll)
	assert.Equal(t, "Favorite Color?", poll.Title)
	assert.Equal(t, []uint64{0, 1, 0}, poll.VoteCounts)
	assert.Equal(t, uint64(1), poll.TotalVotes)
	assert.Equal(t, domain.Identity("0xa11ce"), poll.Creator)

	resp = app.do(t, http.MethodGet, "/api/polls/1/voters/0xB0B", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var voted struct {
		HasVoted bool `json:"has_voted"`
	}
	decode(t, resp, &voted)
	assert.True(t, voted.HasVoted)

	resp = app.do(t, http.MethodGet, "/api/users/0xa11ce/polls", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var owned []domain.PollID
	decode(t, resp, &owned)
	assert.Equal(t, []domain.PollID{1}, owned)

	resp = app.do(t, http.MethodGet, "/api/events?after=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []domain.Event
	decode(t, resp, &events)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventVoteCast, events[0].Kind)
}

func TestCreatePollValidation(t *testing.T) {
	app := setupTestApp(t)
	alice := app.token(t, "0xa11ce")

	tests := []struct {
		name    string
		payload map[string]interface{}
		message string
	}{
		{"empty title", map[string]interface{}{"title": "", "options": []string{"A", "B"}}, "title cannot be empty"},
		{"one option", map[string]interface{}{"title": "T", "options": []string{"A"}}, "must have at least 2 options"},
		{"eleven options", map[string]interface{}{"title": "T", "options": strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")}, "cannot have more than 10 options"},
		{"empty option", map[string]interface{}{"title": "T", "options": []string{"A", ""}}, "option cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.do(t, http.MethodPost, "/api/polls", alice, tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, bodyText(t, resp))
		})
	}

	resp := app.do(t, http.MethodGet, "/api/polls/count", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count uint64 `json:"count"`
	}
	decode(t, resp, &count)
	assert.Zero(t, count.Count)
}

func TestVoteErrors(t *testing.T) {
	app := setupTestApp(t)
	alice := app.token(t, "0xa11ce")

	resp := app.do(t, http.MethodPost, "/api/polls", alice, map[string]interface{}{
		"title": "T", "options": []string{"A", "B"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"unknown poll", "/api/polls/9/votes", map[string]int{"option_index": 0}, http.StatusNotFound},
		{"invalid option", "/api/polls/1/votes", map[string]int{"option_index": 2}, http.StatusBadRequest},
		{"negative option", "/api/polls/1/votes", map[string]int{"option_index": -1}, http.StatusBadRequest},
		{"missing option", "/api/polls/1/votes", map[string]int{}, http.StatusBadRequest},
		{"malformed id", "/api/polls/abc/votes", map[string]int{"option_index": 0}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.do(t, http.MethodPost, tt.path, alice, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAuthentication(t *testing.T) {
	app := setupTestApp(t)

	resp := app.do(t, http.MethodPost, "/api/polls", "", map[string]interface{}{
		"title": "T", "options": []string{"A", "B"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/polls", "not-a-token", map[string]interface{}{
		"title": "T", "options": []string{"A", "B"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The cookie carries the same token as the bearer header.
	req, err := http.NewRequest(http.MethodGet, app.Server.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: handler.AccessTokenName, Value: app.token(t, "0xcafe")})
	resp, err = app.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Identity string `json:"identity"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "0xcafe", me.Identity)

	resp = app.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, handler.AccessTokenName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestReadsAreLenientOrStrict(t *testing.T) {
	app := setupTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/polls/1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "poll does not exist", bodyText(t, resp))

	resp = app.do(t, http.MethodGet, "/api/polls/zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, path := range []string{"/api/polls/1/voters/0xb0b", "/api/polls/0/voters/0xb0b", "/api/polls/x/voters/0xb0b"} {
		resp = app.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var voted struct {
			HasVoted bool `json:"has_voted"`
		}
		decode(t, resp, &voted)
		assert.False(t, voted.HasVoted, path)
	}

	resp = app.do(t, http.MethodGet, "/api/polls", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ids []domain.PollID
	decode(t, resp, &ids)
	assert.Empty(t, ids)

	resp = app.do(t, http.MethodGet, "/api/events?after=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExpiredCookieStillReads(t *testing.T) {
	app := setupTestApp(t)
	resp := app.do(t, http.MethodPost, "/api/polls", app.token(t, "0xabc"), map[string]interface{}{
		"title": "T", "options": []string{"A", "B"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	expired, err := app.Auth.IssueToken("0xabc", -time.Minute)
	require.NoError(t, err)

	send := func(method, path string, body interface{}) *http.Response {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequest(method, app.Server.URL+path, reader)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: handler.AccessTokenName, Value: expired})
		resp, err := app.Client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	for _, path := range []string{"/api/polls", "/api/polls/1", "/api/polls/1/voters/0xabc", "/api/events"} {
		assert.Equal(t, http.StatusOK, send(http.MethodGet, path, nil).StatusCode, path)
	}

	resp = send(http.MethodPost, "/api/polls/1/votes", map[string]int{"option_index": 0})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, bodyText(t, resp), "Unauthorized")

	resp = send(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPollIDsAreSequential(t *testing.T) {
	app := setupTestApp(t)
	token := app.token(t, "0xa11ce")

	for i := 1; i <= 3; i++ {
		resp := app.do(t, http.MethodPost, "/api/polls", token, map[string]interface{}{
			"title": fmt.Sprintf("Poll %d", i), "options": []string{"A", "B"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := app.do(t, http.MethodGet, "/api/polls", "", nil)
	var ids []domain.PollID
	decode(t, resp, &ids)
	assert.Equal(t, []domain.PollID{1, 2, 3}, ids)
}
