package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type VoteHandler struct {
	service ports.RegistryService
}

func NewVoteHandler(service ports.RegistryService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	OptionIndex *int `json:"option_index"`
}

type hasVotedResponse struct {
	PollID   domain.PollID   `json:"poll_id"`
	Identity domain.Identity `json:"identity"`
	HasVoted bool            `json:"has_voted"`
}

// VoteOnPoll godoc
// @Summary      Casts a vote
// @Description  Counts one vote of the authenticated account for the option at option_index. An account votes at most once per poll.
// @Tags         votes
// @Accept       json
// @Success      201
// @Failure      400
// @Failure      401
// @Failure      404
// @Failure      409
// @Router       /api/polls/{id}/votes [post]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := domain.ParsePollID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OptionIndex == nil {
		http.Error(w, "option_index is required", http.StatusBadRequest)
		return
	}

	caller, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing caller identity", http.StatusUnauthorized)
		return
	}

	input := ports.VoteInput{
		PollID:      pollID,
		OptionIndex: *req.OptionIndex,
		Caller:      caller,
	}

	if err := h.service.Vote(r.Context(), input); err != nil {
		writeRegistryError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HasVoted answers 200 for any poll id and identity, known or not.
func (h *VoteHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	identity := domain.NewIdentity(chi.URLParam(r, "identity"))

	pollID, err := domain.ParsePollID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusOK, hasVotedResponse{Identity: identity})
		return
	}

	voted, err := h.service.HasVoted(r.Context(), pollID, identity)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, hasVotedResponse{PollID: pollID, Identity: identity, HasVoted: voted})
}
