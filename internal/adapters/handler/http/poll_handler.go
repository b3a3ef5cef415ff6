package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type PollHandler struct {
	service ports.RegistryService
}

func NewPollHandler(service ports.RegistryService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

type createPollResponse struct {
	ID domain.PollID `json:"id"`
}

type pollCountResponse struct {
	Count uint64 `json:"count"`
}

// CreatePoll godoc
// @Summary      Creates a poll
// @Description  Registers a poll owned by the authenticated account. Title must be non-empty and 2 to 10 non-empty options are required.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      401
// @Router       /api/polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.service.CreatePoll(r.Context(), ports.CreatePollInput{
		Title:   req.Title,
		Options: req.Options,
		Caller:  caller,
	})
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPollResponse{ID: id})
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePollID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

// ListPolls returns every poll id in creation order.
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.GetAllPolls(r.Context())
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *PollHandler) PollCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.PollCount(r.Context())
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pollCountResponse{Count: count})
}

func (h *PollHandler) UserPolls(w http.ResponseWriter, r *http.Request) {
	identity := domain.NewIdentity(chi.URLParam(r, "identity"))

	ids, err := h.service.GetUserPolls(r.Context(), identity)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
