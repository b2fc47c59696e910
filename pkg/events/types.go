// Package events defines outcome events and the publishers that emit them.
package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/purelygoods/storefront/pkg/dispatcher"
)

// OutcomeEvent describes one completed dispatch.
type OutcomeEvent struct {
	Service    string          `json:"service"`
	Operation  string          `json:"operation"`
	URL        string          `json:"url"`
	Ok         bool            `json:"ok"`
	StatusCode int             `json:"statusCode,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
	Timestamp  string          `json:"timestamp"`
}

// NewOutcomeEvent builds an event from a dispatch outcome.
func NewOutcomeEvent(service, operation, url string, out dispatcher.Outcome, elapsed time.Duration) *OutcomeEvent {
	ev := &OutcomeEvent{
		Service:    service,
		Operation:  operation,
		URL:        url,
		Ok:         out.OK(),
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if out.OK() {
		ev.Payload = out.Payload
		return ev
	}

	ev.Error = out.Err.Error()
	var reqErr *dispatcher.RequestError
	if errors.As(out.Err, &reqErr) {
		ev.StatusCode = reqErr.StatusCode
	}
	return ev
}
