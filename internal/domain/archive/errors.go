package archive

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound means the archive holds no usable snapshot. Malformed index
	// answers are reported the same way.
	ErrNotFound = errors.New("no archived snapshot found")

	// ErrPageTooLarge is returned when a snapshot body exceeds the size cap.
	ErrPageTooLarge = errors.New("archived page exceeds size limit")
)

// Stage names the upstream call that failed.
type Stage string

const (
	StageIndex Stage = "index"
	StageFetch Stage = "fetch"
)

// UpstreamError reports a transport or status failure talking to the archive.
type UpstreamError struct {
	Stage  Stage
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("archive %s: unexpected status %d", e.Stage, e.Status)
	}
	return fmt.Sprintf("archive %s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline.
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

func statusError(stage Stage, status int) error {
	return &UpstreamError{
		Stage:  stage,
		Status: status,
		Err:    fmt.Errorf("status %d", status),
	}
}
