package domain

import (
	"strconv"
	"time"
)

const (
	MinOptions = 2
	MaxOptions = 10
)

type PollID uint64

func (id PollID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePollID parses a decimal poll id. Zero is never a valid id.
func ParsePollID(s string) (PollID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, ErrInvalidPollID
	}
	return PollID(n), nil
}

type Poll struct {
	ID         PollID    `json:"id"`
	Title      string    `json:"title"`
	Options    []string  `json:"options"`
	VoteCounts []uint64  `json:"vote_counts"`
	Creator    Identity  `json:"creator"`
	TotalVotes uint64    `json:"total_votes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewPoll builds a poll with zeroed counters. Inputs are assumed validated.
func NewPoll(id PollID, title string, options []string, creator Identity, createdAt time.Time) *Poll {
	opts := make([]string, len(options))
	copy(opts, options)
	return &Poll{
		ID:         id,
		Title:      title,
		Options:    opts,
		VoteCounts: make([]uint64, len(options)),
		Creator:    creator,
		CreatedAt:  createdAt,
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	c.VoteCounts = append([]uint64(nil), p.VoteCounts...)
	return &c
}

// HasOption reports whether index addresses one of the poll's options.
func (p *Poll) HasOption(index int) bool {
	return index >= 0 && index < len(p.Options)
}

// RecordVote bumps the option counter and the total together.
func (p *Poll) RecordVote(index int) error {
	if !p.HasOption(index) {
		return ErrInvalidOption
	}
	p.VoteCounts[index]++
	p.TotalVotes++
	return nil
}

// CountsConsistent reports whether TotalVotes equals the sum of VoteCounts and
// the counters line up with the options.
func (p *Poll) CountsConsistent() bool {
	if len(p.VoteCounts) != len(p.Options) {
		return false
	}
	var sum uint64
	for _, c := range p.VoteCounts {
		sum += c
	}
	return sum == p.TotalVotes
}

// ValidatePoll checks the creation inputs in a fixed order: title, option
// count, then each option.
func ValidatePoll(title string, options []string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if len(options) < MinOptions {
		return ErrTooFewOptions
	}
	if len(options) > MaxOptions {
		return ErrTooManyOptions
	}
	for _, opt := range options {
		if opt == "" {
			return ErrEmptyOption
		}
	}
	return nil
}
