package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/liveness-broker/internal/circuitbreaker"
	"github.com/liveness-broker/internal/codec"
	"github.com/liveness-broker/internal/config"
	"github.com/liveness-broker/internal/retry"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cdc, err := codec.New("test-passphrase")
	if err != nil {
		t.Fatalf("codec.New() error = %v", err)
	}

	client, err := NewClient(&config.ProviderConfig{
		BaseURL: baseURL,
		Timeout: time.Second,
	}, cdc)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	// Keep retries fast under test
	client.retryCfg = &retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
	return client
}

func TestRedirectURL_RoundTrips(t *testing.T) {
	client := newTestClient(t, "https://verify.example.com")

	redirect, err := client.RedirectURL("code-1")
	if err != nil {
		t.Fatalf("RedirectURL() error = %v", err)
	}

	parsed, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("redirect unparsable: %v", err)
	}
	id := parsed.Query().Get("id")
	if id == "" || id == "code-1" {
		t.Fatalf("link id = %q, want opaque blob", id)
	}

	resolved, err := client.ResolveLinkID(id)
	if err != nil {
		t.Fatalf("ResolveLinkID() error = %v", err)
	}
	if resolved != "code-1" {
		t.Errorf("resolved = %s, want code-1", resolved)
	}
}

func TestHealth_Healthy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(backend.Close)

	client := newTestClient(t, backend.URL)

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if client.BreakerState() != circuitbreaker.StateClosed {
		t.Errorf("breaker state = %s, want closed", client.BreakerState())
	}
}

func TestHealth_UnhealthyRetries(t *testing.T) {
	requests := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	client := newTestClient(t, backend.URL)

	if err := client.Health(context.Background()); err == nil {
		t.Fatal("Health() expected error for 500 backend")
	}
	if requests != 2 {
		t.Errorf("backend saw %d requests, want 2 (retried once)", requests)
	}
}

func TestHealth_BreakerOpensAndShortCircuits(t *testing.T) {
	requests := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	client := newTestClient(t, backend.URL)
	client.breaker = circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		Name:             "test-provider",
		MaxFailures:      1,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 1,
	})

	if err := client.Health(context.Background()); err == nil {
		t.Fatal("Health() expected error for 500 backend")
	}
	if client.BreakerState() != circuitbreaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", client.BreakerState())
	}

	seen := requests
	err := client.Health(context.Background())
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("Health() error = %v, want ErrCircuitOpen", err)
	}
	if requests != seen {
		t.Errorf("open breaker still reached the backend (%d -> %d requests)", seen, requests)
	}
}
