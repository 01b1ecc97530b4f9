package fetch

import (
	"fmt"
	"time"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
)

// Error is the result of a failed page fetch.
type Error struct {
	Kind       failure.Kind
	URL        string
	Status     int
	RetryAfter time.Duration
	// Snapshot is the path of the diagnostic artifact, when one was written.
	Snapshot string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s fetching %s", e.Kind, e.URL)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) FailureKind() failure.Kind { return e.Kind }
