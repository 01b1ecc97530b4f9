package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidParams = "invalid_params"
	CodeUnauthorized  = "unauthorized"
	CodeBusy          = "concurrent_run_rejected"
	CodeRunFailed     = "run_failed"
	CodeMirrorMissing = "mirror_unavailable"
	CodeInternal      = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// As extracts an *Error from err, falling back to a generic 500.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Err: errors.New("internal error")}
}
