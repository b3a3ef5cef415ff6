package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventPollCreated EventKind = "poll_created"
	EventVoteCast    EventKind = "vote_cast"
)

// Event is one entry of the registry's notification log. Seq is the 1-based
// position in that log; OptionIndex is only meaningful for vote_cast.
type Event struct {
	Seq         uint64    `json:"seq"`
	ID          uuid.UUID `json:"id"`
	Kind        EventKind `json:"kind"`
	PollID      PollID    `json:"poll_id"`
	OptionIndex int       `json:"option_index"`
	Actor       Identity  `json:"actor"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewPollCreated(pollID PollID, creator Identity, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       EventPollCreated,
		PollID:     pollID,
		Actor:      creator,
		OccurredAt: at,
	}
}

func NewVoteCast(pollID PollID, optionIndex int, voter Identity, at time.Time) Event {
	return Event{
		ID:          uuid.New(),
		Kind:        EventVoteCast,
		PollID:      pollID,
		OptionIndex: optionIndex,
		Actor:       voter,
		OccurredAt:  at,
	}
}

// MarshalJSON writes option_index for vote_cast events only, including
// option 0.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	out := struct {
		event
		OptionIndex *int `json:"option_index,omitempty"`
	}{event: event(e)}
	if e.Kind == EventVoteCast {
		idx := e.OptionIndex
		out.OptionIndex = &idx
	}
	return json.Marshal(out)
}
