package services

import (
	"errors"
	"strings"
)

// Sentinel errors for the registry and access layers. Messages that reach
// API clients keep their historical wording.
var (
	ErrNotFound        = errors.New("short URL not found")
	ErrForbidden       = errors.New("the short URL belongs to another team")
	ErrAccessDenied    = errors.New("member is not active in the team")
	ErrNoTeamSession   = errors.New("bad request, should have team session data")
	ErrNoIdentity      = errors.New("member identity could not be resolved")
	ErrDuplicatePath   = errors.New("The short URL path exists already")
	ErrNothingToUpdate = errors.New("At least one of Tag and Memo must be set")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

// ValidationError carries one message per failed check, rendered as the
// errors list of a 400 response.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func Validation(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}
