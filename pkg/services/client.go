// Package services holds the feature components that call backend services
// through the endpoint registry and the request dispatcher.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/purelygoods/storefront/pkg/dispatcher"
	"github.com/purelygoods/storefront/pkg/endpoints"
	"github.com/purelygoods/storefront/pkg/events"
)

const logPrefix = "services:client"

// PingResponse is the body the backend services answer a ping with.
type PingResponse struct {
	Message string `json:"message"`
}

// Client resolves endpoints and dispatches requests to them. Every completed
// dispatch is handed to the outcome publisher.
type Client struct {
	registry   *endpoints.Registry
	dispatcher *dispatcher.Dispatcher
	publisher  events.OutcomePublisher
}

// NewClient creates a Client. A nil publisher means outcomes are not published.
func NewClient(registry *endpoints.Registry, d *dispatcher.Dispatcher, publisher events.OutcomePublisher) *Client {
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &Client{registry: registry, dispatcher: d, publisher: publisher}
}

// Registry returns the endpoint registry the client resolves against.
func (c *Client) Registry() *endpoints.Registry {
	return c.registry
}

// Call resolves key and dispatches a GET to it. The returned error is non-nil
// only when key is not in the registry (*endpoints.ConfigurationError); request
// failures are reported through the Outcome.
func (c *Client) Call(ctx context.Context, key endpoints.Key) (dispatcher.Outcome, error) {
	url, err := c.registry.Resolve(key.Service, key.Operation)
	if err != nil {
		return dispatcher.Outcome{}, err
	}
	return c.call(ctx, key, url), nil
}

func (c *Client) call(ctx context.Context, key endpoints.Key, url string) dispatcher.Outcome {
	call, published := c.dispatch(ctx, key, url)
	<-published
	return call.Wait()
}

// dispatch starts a GET without waiting for it. The returned channel is
// closed once the outcome has been handed to the publisher.
func (c *Client) dispatch(ctx context.Context, key endpoints.Key, url string) (*dispatcher.Call, <-chan struct{}) {
	start := time.Now()
	call := c.dispatcher.Dispatch(ctx, url)
	published := make(chan struct{})

	go func() {
		defer close(published)
		out := call.Wait()
		elapsed := time.Since(start)

		slog.Debug(fmt.Sprintf("%s - %s completed ok=%t in %s", logPrefix, key, out.OK(), elapsed))

		ev := events.NewOutcomeEvent(string(key.Service), string(key.Operation), url, out, elapsed)
		if err := c.publisher.PublishOutcome(ctx, ev); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish outcome for %s: %v", logPrefix, key, err))
		}
	}()

	return call, published
}

// Ping calls the PING operation of svc.
func (c *Client) Ping(ctx context.Context, svc endpoints.Service) (dispatcher.Outcome, error) {
	return c.Call(ctx, endpoints.Key{Service: svc, Operation: endpoints.OperationPing})
}
