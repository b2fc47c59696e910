package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/purelygoods/storefront/pkg/dispatcher"
	"github.com/purelygoods/storefront/pkg/endpoints"
	"github.com/purelygoods/storefront/pkg/services"
)

// EndpointStatus is the result of pinging one endpoint.
type EndpointStatus struct {
	Endpoint   string `json:"endpoint"`
	URL        string `json:"url"`
	Ok         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// HealthReport aggregates the ping results of every registered PING endpoint.
type HealthReport struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Endpoints []EndpointStatus `json:"endpoints"`
}

// Healthy reports whether every endpoint answered with success.
func (h *HealthReport) Healthy() bool {
	return h.Status == "healthy"
}

// CheckEndpoints pings every PING operation in the registry concurrently.
// Results are ordered like Registry.Entries.
func CheckEndpoints(ctx context.Context, client *services.Client) *HealthReport {
	var pings []endpoints.Entry
	for _, e := range client.Registry().Entries() {
		if e.Operation == endpoints.OperationPing {
			pings = append(pings, e)
		}
	}

	statuses := make([]EndpointStatus, len(pings))
	var wg sync.WaitGroup
	for i, e := range pings {
		wg.Add(1)
		go func(i int, e endpoints.Entry) {
			defer wg.Done()
			key := endpoints.Key{Service: e.Service, Operation: e.Operation}
			start := time.Now()
			out, err := client.Call(ctx, key)
			if err != nil {
				out = dispatcher.Outcome{Err: err}
			}
			statuses[i] = endpointStatus(key, e.URL, out, time.Since(start))
		}(i, e)
	}
	wg.Wait()

	report := &HealthReport{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Endpoints: statuses,
	}
	for _, s := range statuses {
		if !s.Ok {
			report.Status = "unhealthy"
			break
		}
	}
	return report
}

func endpointStatus(key endpoints.Key, url string, out dispatcher.Outcome, elapsed time.Duration) EndpointStatus {
	s := EndpointStatus{
		Endpoint:   key.String(),
		URL:        url,
		Ok:         out.OK(),
		DurationMs: elapsed.Milliseconds(),
	}
	if out.OK() {
		return s
	}
	s.Error = out.Err.Error()
	var reqErr *dispatcher.RequestError
	if errors.As(out.Err, &reqErr) {
		s.StatusCode = reqErr.StatusCode
	}
	return s
}
