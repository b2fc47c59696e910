// Package tests contains end-to-end tests for the storefront.
// These tests start an embedded NATS server and a fake backend, then drive the
// full path: endpoint registry, dispatcher, feature components, outcome events.
package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/purelygoods/storefront/internal/config"
	"github.com/purelygoods/storefront/internal/server"
	"github.com/purelygoods/storefront/pkg/events"
	"github.com/purelygoods/storefront/pkg/services"
)

const e2eTestPrefix = "tests:e2e_test"

// testEnv holds the test environment for E2E tests.
type testEnv struct {
	ns        *commsserver.Server
	observer  *comms.Conn
	backend   *httptest.Server
	cartCalls atomic.Int32
	app       *server.App
	cfg       *config.Config
}

// setupE2E starts an embedded NATS server and a backend serving both pings,
// then builds the App with COMMS_URL pointing at NATS.
func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	}
	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("%s - failed to create NATS server: %v", e2eTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - NATS server failed to start", e2eTestPrefix)
	}

	observer, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", e2eTestPrefix, err)
	}

	env := &testEnv{ns: ns, observer: observer}

	mux := http.NewServeMux()
	mux.HandleFunc("/payment-service/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"payment pong"}`))
	})
	mux.HandleFunc("/cart-service/ping", func(w http.ResponseWriter, _ *http.Request) {
		env.cartCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	env.backend = httptest.NewServer(mux)

	env.cfg = &config.Config{
		APIURL:              env.backend.URL + "/",
		ServiceName:         "storefront-e2e",
		COMMSURL:            ns.ClientURL(),
		OutcomeEventSubject: "storefront.outcome",
		HTTPPort:            8090,
		HealthCheckTimeout:  5 * time.Second,
	}
	app, err := server.NewApp(context.Background(), env.cfg, server.AppOptions{})
	if err != nil {
		t.Fatalf("%s - NewApp: %v", e2eTestPrefix, err)
	}
	env.app = app

	t.Cleanup(func() {
		env.app.Close()
		env.backend.Close()
		env.observer.Close()
		env.ns.Shutdown()
		env.ns.WaitForShutdown()
	})
	return env
}

func (env *testEnv) subscribe(t *testing.T, subject string) chan *events.OutcomeEvent {
	t.Helper()
	ch := make(chan *events.OutcomeEvent, 8)
	sub, err := env.observer.Subscribe(subject, func(msg *comms.Msg) {
		var ev events.OutcomeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Errorf("%s - unmarshal event: %v", e2eTestPrefix, err)
			return
		}
		ch <- &ev
	})
	if err != nil {
		t.Fatalf("%s - subscribe %s: %v", e2eTestPrefix, subject, err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	if err := env.observer.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", e2eTestPrefix, err)
	}
	return ch
}

func waitEvent(t *testing.T, ch chan *events.OutcomeEvent) *events.OutcomeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - timed out waiting for outcome event", e2eTestPrefix)
		return nil
	}
}

func TestE2E_PaymentComponentPublishesOutcome(t *testing.T) {
	env := setupE2E(t)
	global := env.subscribe(t, "storefront.outcome")
	granular := env.subscribe(t, "storefront.outcome.payment.ping")

	comp := services.NewPaymentComponent(env.app.Payment, nil)
	comp.Init(context.Background())
	out := comp.Wait()
	if !out.OK() {
		t.Fatalf("%s - expected success, got %v", e2eTestPrefix, out.Err)
	}
	var resp services.PingResponse
	if err := out.Decode(&resp); err != nil || resp.Message != "payment pong" {
		t.Fatalf("%s - decoded %+v, err %v", e2eTestPrefix, resp, err)
	}

	ev := waitEvent(t, global)
	if ev.Service != "PAYMENT" || ev.Operation != "PING" || !ev.Ok {
		t.Errorf("%s - unexpected global event %+v", e2eTestPrefix, ev)
	}
	if ev.URL != env.backend.URL+"/payment-service/ping" {
		t.Errorf("%s - event URL = %q", e2eTestPrefix, ev.URL)
	}
	if g := waitEvent(t, granular); g.Service != "PAYMENT" {
		t.Errorf("%s - unexpected granular event %+v", e2eTestPrefix, g)
	}
}

func TestE2E_CartFailurePublishesStatus(t *testing.T) {
	env := setupE2E(t)
	granular := env.subscribe(t, "storefront.outcome.cart.>")

	out := env.app.Cart.Ping(context.Background())
	if out.OK() {
		t.Fatalf("%s - expected failure", e2eTestPrefix)
	}

	ev := waitEvent(t, granular)
	if ev.Ok || ev.StatusCode != http.StatusServiceUnavailable || ev.Error == "" {
		t.Errorf("%s - unexpected event %+v", e2eTestPrefix, ev)
	}
	if env.cartCalls.Load() != 1 {
		t.Errorf("%s - expected exactly one cart request, got %d", e2eTestPrefix, env.cartCalls.Load())
	}
}

func TestE2E_HealthEndpoint(t *testing.T) {
	env := setupE2E(t)
	global := env.subscribe(t, "storefront.outcome")

	srv := httptest.NewServer(server.NewServer(env.cfg, env.app).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("%s - GET /health: %v", e2eTestPrefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("%s - status = %d, want 503 (cart is down)", e2eTestPrefix, resp.StatusCode)
	}
	var report server.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("%s - decode: %v", e2eTestPrefix, err)
	}
	if len(report.Endpoints) != 2 {
		t.Fatalf("%s - expected 2 endpoints, got %+v", e2eTestPrefix, report.Endpoints)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[waitEvent(t, global).Service] = true
	}
	if !seen["PAYMENT"] || !seen["CART"] {
		t.Errorf("%s - expected events for both services, got %v", e2eTestPrefix, seen)
	}
}
