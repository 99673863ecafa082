// internal/navigator/result.go
package navigator

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
)

const (
	// OK is the external success indicator.
	OK = "OK"
	// ErrorIndicator is the external failure indicator.
	ErrorIndicator = "ERROR"
)

// Status is the outcome class of an operation.
type Status int

const (
	StatusOK Status = iota
	StatusPayload
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPayload:
		return "payload"
	case StatusFailure:
		return "failure"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Reason classifies a failure.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonSessionFatal Reason = "session_fatal"
	ReasonNavigation   Reason = "navigation"
	ReasonNotFound     Reason = "not_found"
	ReasonNoBox        Reason = "no_bounding_box"
	ReasonOutOfRange   Reason = "out_of_range"
	ReasonNoContext    Reason = "no_context"
	ReasonNoActivePage Reason = "no_active_page"
	ReasonBadArgument  Reason = "bad_argument"
	ReasonInternal     Reason = "internal"
)

// Result is the typed outcome of one operation. It keeps the cause of a
// failure until the transport collapses it with String.
type Result struct {
	Status  Status
	Payload string
	Reason  Reason
	Err     error
}

func ok() Result { return Result{Status: StatusOK} }

func payload(s string) Result { return Result{Status: StatusPayload, Payload: s} }

func failure(reason Reason, err error) Result {
	return Result{Status: StatusFailure, Reason: reason, Err: err}
}

// String collapses the result to "OK", "ERROR" or the payload.
func (r Result) String() string {
	switch r.Status {
	case StatusOK:
		return OK
	case StatusPayload:
		return r.Payload
	default:
		return ErrorIndicator
	}
}

// Failed reports whether the operation failed.
func (r Result) Failed() bool { return r.Status == StatusFailure }

// Propagate returns the error a transport must surface as an error instead
// of the failure indicator: session-fatal and navigation failures. It is nil
// for every other result.
func (r Result) Propagate() error {
	if r.Status != StatusFailure {
		return nil
	}
	switch r.Reason {
	case ReasonSessionFatal, ReasonNavigation:
		return r.Err
	}
	return nil
}

// classify maps a browser error to a failure reason.
func classify(err error) Reason {
	switch {
	case errors.Is(err, browser.ErrSessionFatal):
		return ReasonSessionFatal
	case errors.Is(err, browser.ErrNoBrowsingContext):
		return ReasonNoContext
	case errors.Is(err, browser.ErrTabIndexOutOfRange):
		return ReasonOutOfRange
	case errors.Is(err, browser.ErrNoActivePage):
		return ReasonNoActivePage
	case errors.Is(err, browser.ErrElementNotFound):
		return ReasonNotFound
	case errors.Is(err, browser.ErrNoBoundingBox):
		return ReasonNoBox
	}
	return ReasonInternal
}
