package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/purelygoods/storefront/pkg/endpoints"
	"github.com/purelygoods/storefront/pkg/events"
)

const appTestPrefix = "server:app_test"

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestLoadEndpointTable_Default(t *testing.T) {
	table, err := LoadEndpointTable(context.Background(), testConfig("https://api.example.com"))
	if err != nil {
		t.Fatalf("%s - LoadEndpointTable: %v", appTestPrefix, err)
	}
	if table[endpoints.ServicePayment][endpoints.OperationPing] != "payment-service/ping" {
		t.Errorf("%s - unexpected default table %v", appTestPrefix, table)
	}
}

func TestLoadEndpointTable_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.json")
	data := `{"schemaVersion":"1.2.0","endpoints":{
		"PAYMENT":{"PING":"v2/payment/ping"},
		"CART":{"PING":"v2/cart/ping"}}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("%s - write: %v", appTestPrefix, err)
	}
	cfg := testConfig("https://api.example.com")
	cfg.EndpointsFile = path

	app, err := NewApp(context.Background(), cfg, AppOptions{})
	if err != nil {
		t.Fatalf("%s - NewApp: %v", appTestPrefix, err)
	}
	defer app.Close()

	if got := app.Registry.PaymentPing(); got != "https://api.example.com/v2/payment/ping" {
		t.Errorf("%s - PaymentPing = %q", appTestPrefix, got)
	}
}

func TestNewApp_InvalidBaseURL(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("ftp://api.example.com"), AppOptions{})
	if err == nil {
		t.Fatalf("%s - expected error for non-http base URL", appTestPrefix)
	}
	if !endpoints.IsConfigurationError(err) {
		t.Errorf("%s - expected ConfigurationError, got %v", appTestPrefix, err)
	}
}

func TestNewApp_Overrides(t *testing.T) {
	var mu sync.Mutex
	var got []*events.OutcomeEvent
	pub := events.NewCallbackPublisher(func(_ context.Context, ev *events.OutcomeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	})

	app, err := NewApp(context.Background(), testConfig("https://api.example.com"), AppOptions{
		HTTPClient: failingDoer{},
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("%s - NewApp: %v", appTestPrefix, err)
	}
	defer app.Close()

	out := app.Cart.Ping(context.Background())
	if out.OK() {
		t.Fatalf("%s - expected transport failure", appTestPrefix)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Service != "CART" || got[0].Ok {
		t.Errorf("%s - unexpected events %+v", appTestPrefix, got)
	}
}
