package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/jweese001/threejs-ide/internal/resilience"
)

// Registry resolves "latest" to a concrete version via the jsdelivr package
// metadata API. Lookups are rate limited and circuit broken; any failure
// degrades the caller to the unpinned template URL.
type Registry struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// RegistryConfig tunes the metadata client.
type RegistryConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// DefaultRegistryConfig returns the jsdelivr data API defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		BaseURL:           "https://data.jsdelivr.com",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 4,
	}
}

// NewRegistry creates a metadata client over a retrying transport.
func NewRegistry(cfg RegistryConfig) *Registry {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "threejs-ide/1.0")
	client.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("cdn-registry", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Registry{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		breaker: breaker,
	}
}

// ResolveVersion returns the registry's current version for a package name.
func (reg *Registry) ResolveVersion(ctx context.Context, name string) (string, error) {
	if err := reg.limiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := reg.breaker.Execute(func() (interface{}, error) {
		var body struct {
			Version string `json:"version"`
		}
		resp, err := reg.client.R().
			SetContext(ctx).
			SetResult(&body).
			Get("/v1/packages/npm/" + name + "/resolved")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("registry returned %s for %s", resp.Status(), name)
		}
		if body.Version == "" {
			return nil, fmt.Errorf("registry returned no version for %s", name)
		}
		return body.Version, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
