// Package provider talks to the external liveness verification provider.
// The provider is a black box: the broker only hands browsers a redirect URL
// and accepts a callback naming the outcome. Outbound calls are guarded by a
// circuit breaker and retried with backoff.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/liveness-broker/internal/circuitbreaker"
	"github.com/liveness-broker/internal/codec"
	"github.com/liveness-broker/internal/config"
	"github.com/liveness-broker/internal/retry"
)

// Client builds redirect URLs toward the verification provider and resolves
// the encrypted identifiers embedded in them.
type Client struct {
	baseURL    string
	codec      *codec.Codec
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retryCfg   *retry.Config
}

// NewClient creates a provider client
func NewClient(cfg *config.ProviderConfig, cdc *codec.Codec) (*Client, error) {
	if cdc == nil {
		return nil, fmt.Errorf("codec is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}

	return &Client{
		baseURL:    baseURL,
		codec:      cdc,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("verification-provider")),
		retryCfg:   retry.DefaultConfig(),
	}, nil
}

// RedirectURL returns the URL a browser is sent to for verification. The
// selfie code travels only in encrypted form.
func (c *Client) RedirectURL(selfieCode string) (string, error) {
	blob, err := c.codec.Encrypt(selfieCode)
	if err != nil {
		return "", fmt.Errorf("encrypt link id: %w", err)
	}

	q := url.Values{}
	q.Set("id", blob)
	return c.baseURL + "/verify?" + q.Encode(), nil
}

// ResolveLinkID decrypts an identifier taken from a redirect or callback
// URL back to the selfie code it names. Malformed identifiers surface the
// codec's decode error.
func (c *Client) ResolveLinkID(id string) (string, error) {
	return c.codec.Decrypt(id)
}

// Health probes the provider's health endpoint through the circuit breaker
func (c *Client) Health(ctx context.Context) error {
	return c.breaker.Execute(ctx, func() error {
		return retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context, _ int) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
			if err != nil {
				return fmt.Errorf("build health request: %w", err)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("provider unreachable: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("provider unhealthy: status %d", resp.StatusCode)
			}
			return nil
		})
	})
}

// BreakerState exposes the circuit breaker state for health reporting
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}
