package events

import "context"

// OutcomePublisher is the interface for publishing dispatch outcome events.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, event *OutcomeEvent) error
}

// NoOpPublisher is an OutcomePublisher that does nothing (no COMMS configured).
type NoOpPublisher struct{}

// PublishOutcome is a no-op.
func (p *NoOpPublisher) PublishOutcome(_ context.Context, _ *OutcomeEvent) error {
	return nil
}

// CallbackPublisher is an OutcomePublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *OutcomeEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *OutcomeEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishOutcome calls the callback.
func (p *CallbackPublisher) PublishOutcome(ctx context.Context, event *OutcomeEvent) error {
	return p.callback(ctx, event)
}
