package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

const logPrefix = "dispatcher:dispatch"

// AcceptHeader is sent with every request.
const AcceptHeader = "application/json, text/plain, */*"

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Dispatcher. Zero values use defaults.
type Options struct {
	// Client defaults to http.DefaultClient.
	Client Doer
	// UserAgent is sent when non-empty.
	UserAgent string
	// Timeout bounds each request when positive; zero leaves it to the transport.
	Timeout time.Duration
}

// Dispatcher issues GET requests. It holds no per-request state and is safe
// for concurrent use.
type Dispatcher struct {
	client    Doer
	userAgent string
	timeout   time.Duration
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Dispatcher{client: client, userAgent: opts.UserAgent, timeout: opts.Timeout}
}

// Call tracks one dispatched request through Idle, Pending, Succeeded or
// Failed, and finally Completed.
type Call struct {
	url     string
	state   atomic.Int32
	done    chan struct{}
	outcome Outcome
}

// URL returns the requested URL.
func (c *Call) URL() string {
	return c.url
}

// State returns the current lifecycle state.
func (c *Call) State() State {
	return State(c.state.Load())
}

// Done is closed exactly once, after the outcome is available.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes and returns its outcome.
func (c *Call) Wait() Outcome {
	<-c.done
	return c.outcome
}

// Outcome returns the outcome without blocking; ok is false while the call is in flight.
func (c *Call) Outcome() (Outcome, bool) {
	select {
	case <-c.done:
		return c.outcome, true
	default:
		return Outcome{}, false
	}
}

// Dispatch starts a GET request against url and returns immediately. The
// returned Call completes exactly once with either a payload or a *RequestError.
func (d *Dispatcher) Dispatch(ctx context.Context, url string) *Call {
	c := &Call{url: url, done: make(chan struct{})}
	c.state.Store(int32(StatePending))

	go func() {
		out := d.do(ctx, url)
		if out.OK() {
			c.state.Store(int32(StateSucceeded))
		} else {
			c.state.Store(int32(StateFailed))
		}
		c.outcome = out
		c.state.Store(int32(StateCompleted))
		close(c.done)
	}()

	return c
}

// Do dispatches a GET request against url and waits for its outcome.
func (d *Dispatcher) Do(ctx context.Context, url string) Outcome {
	return d.Dispatch(ctx, url).Wait()
}

func (d *Dispatcher) do(ctx context.Context, url string) Outcome {
	slog.Debug(fmt.Sprintf("%s - GET %s", logPrefix, url))

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Err: &RequestError{URL: url, Cause: err}}
	}
	req.Header.Set("Accept", AcceptHeader)
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - GET %s failed after %s: %v", logPrefix, url, time.Since(start), err))
		return Outcome{Err: &RequestError{URL: url, Cause: err}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Err: &RequestError{URL: url, StatusCode: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}}
	}
	slog.Debug(fmt.Sprintf("%s - GET %s -> %d (%d bytes, %s)", logPrefix, url, resp.StatusCode, len(body), time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{Err: &RequestError{URL: url, StatusCode: resp.StatusCode, Body: body}}
	}

	// An empty 2xx body decodes as JSON null.
	if len(body) == 0 {
		return Outcome{Payload: json.RawMessage("null")}
	}
	if !json.Valid(body) {
		return Outcome{Err: &RequestError{URL: url, StatusCode: resp.StatusCode, Body: body, Cause: fmt.Errorf("response body is not valid JSON")}}
	}
	return Outcome{Payload: json.RawMessage(body)}
}
