// Package dispatcher issues single GET requests against resolved endpoint URLs
// and reports each one as an Outcome.
package dispatcher

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// State is the lifecycle position of one dispatched call.
type State int32

// A Call starts Pending, moves to Succeeded or Failed when the response (or
// transport error) arrives, and ends Completed. StateIdle is the zero value.
const (
	StateIdle State = iota
	StatePending
	StateSucceeded
	StateFailed
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome is the result of one dispatched request: exactly one of a JSON
// payload (Err == nil) or a failure cause (Err != nil).
type Outcome struct {
	Payload json.RawMessage
	Err     error
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Decode unmarshals a success payload into v. A failed outcome returns its cause.
func (o Outcome) Decode(v interface{}) error {
	if o.Err != nil {
		return o.Err
	}
	return json.Unmarshal(o.Payload, v)
}

// RequestError is the failure cause of a dispatched request. StatusCode is
// zero when the request never produced an HTTP response.
type RequestError struct {
	URL        string
	StatusCode int
	Body       []byte
	Cause      error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("GET %s: status %d: %v", e.URL, e.StatusCode, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("GET %s: %v", e.URL, e.Cause)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}
