package http

import (
	"net/http"
	"strconv"

	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type EventHandler struct {
	service ports.RegistryService
}

func NewEventHandler(service ports.RegistryService) *EventHandler {
	return &EventHandler{
		service: service,
	}
}

// ListEvents returns the event log after the sequence number in ?after.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		after uint64
		limit int
		err   error
	)
	if s := r.URL.Query().Get("after"); s != "" {
		if after, err = strconv.ParseUint(s, 10, 64); err != nil {
			http.Error(w, "invalid after parameter", http.StatusBadRequest)
			return
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
	}

	events, err := h.service.Events(r.Context(), after, limit)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
