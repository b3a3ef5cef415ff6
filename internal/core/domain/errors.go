package domain

import "errors"

// ErrValidation is wrapped by every input rejection so transports can map the
// whole class at once.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyTitle      = validationError("title cannot be empty")
	ErrTooFewOptions   = validationError("must have at least 2 options")
	ErrTooManyOptions  = validationError("cannot have more than 10 options")
	ErrEmptyOption     = validationError("option cannot be empty")
	ErrInvalidOption   = validationError("invalid option index")
	ErrInvalidPollID   = validationError("invalid poll id")
	ErrMissingIdentity = validationError("caller identity is required")

	ErrPollNotFound = errors.New("poll does not exist")
	ErrAlreadyVoted = errors.New("already voted on this poll")
	ErrInternal     = errors.New("internal server error")
)

type rejection struct {
	msg string
}

func validationError(msg string) error {
	return &rejection{msg: msg}
}

func (e *rejection) Error() string { return e.msg }

func (e *rejection) Is(target error) bool {
	return target == ErrValidation
}

// IsRejection reports whether err is an expected rejection of a registry call
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPollNotFound) ||
		errors.Is(err, ErrAlreadyVoted)
}
