package browse

import (
	"fmt"
	"strings"
)

// Kind classifies a browse failure.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindNetwork        Kind = "network"
	KindSanitize       Kind = "sanitize"
	KindInternal       Kind = "internal"
)

// NotFoundMessage is shown when the archive has nothing for a URL.
const NotFoundMessage = "No archived version found in the void"

// Error is the only error type Browse returns. Message is safe to show.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error appends the cause unless Message already quotes it.
func (e *Error) Error() string {
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		return fmt.Sprintf("browse %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("browse %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
