// Package failure holds the error taxonomy shared by the ingestion stages.
package failure

import "errors"

type Kind string

const (
	KindNetwork       Kind = "network_error"
	KindParse         Kind = "parse_error"
	KindRateLimited   Kind = "rate_limited"
	KindInvalidDate   Kind = "invalid_date"
	KindMissingURL    Kind = "missing_url"
	KindStoreConflict Kind = "store_conflict"
	KindStore         Kind = "store_error"
	KindBusy          Kind = "concurrent_run_rejected"
	KindCanceled      Kind = "canceled"
	KindInternal      Kind = "internal_error"
)

// Kinded is implemented by stage errors that carry a taxonomy kind.
type Kinded interface {
	error
	FailureKind() Kind
}

// KindOf walks the error chain and returns the first kind found.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.FailureKind()
	}
	return KindInternal
}

// Summary is the caller-safe view of a blocking error.
type Summary struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Summarize hides internal detail for anything without a known kind.
func Summarize(err error) *Summary {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	msg := err.Error()
	switch kind {
	case KindInternal:
		msg = "internal error"
	case KindStore:
		msg = "store unavailable"
	case KindStoreConflict:
		msg = "a candidate collided with an existing row under a different identity"
	}
	return &Summary{Kind: kind, Message: msg}
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string     { return e.err.Error() }
func (e *kindError) Unwrap() error     { return e.err }
func (e *kindError) FailureKind() Kind { return e.kind }

// Wrap tags err with kind.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}
