package intel

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/resilience"
)

// MaxFeedSize bounds a downloaded feed document
const MaxFeedSize = 16 * 1024 * 1024

// FetcherConfig configures remote feed downloads
type FetcherConfig struct {
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	// RequestsPerSecond caps outbound feed requests; 0 disables the limit
	RequestsPerSecond float64
	UserAgent         string
}

// DefaultFetcherConfig returns conservative download settings
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		MinWait:           1 * time.Second,
		MaxWait:           30 * time.Second,
		RequestsPerSecond: 1,
		UserAgent:         "titan-intel/1.0",
	}
}

// Fetcher downloads feed documents over HTTP
type Fetcher struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewFetcher creates a fetcher with retrying transport, rate limit and circuit breaker
func NewFetcher(cfg FetcherConfig) *Fetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.MinWait
	retryClient.RetryWaitMax = cfg.MaxWait
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = cfg.Timeout

	// Retries happen in the retryablehttp round tripper, each attempt bounded by cfg.Timeout
	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json, application/yaml, application/toml, text/plain")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	breaker := resilience.New("intel-feed", resilience.Settings{
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Fetcher{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
	}
}

// Fetch downloads and parses one feed document
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return resilience.Call(f.breaker, func() (*Document, error) {
		resp, err := f.resty.R().SetContext(ctx).SetDoNotParseResponse(true).Get(feedURL)
		if err != nil {
			return nil, fmt.Errorf("feed request failed: %w", err)
		}
		raw := resp.RawBody()
		defer raw.Close()

		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, fmt.Errorf("feed request failed: HTTP %d (url: %s)", resp.StatusCode(), feedURL)
		}

		body, err := io.ReadAll(io.LimitReader(raw, MaxFeedSize+1))
		if err != nil {
			return nil, fmt.Errorf("read feed body: %w", err)
		}
		if len(body) > MaxFeedSize {
			return nil, fmt.Errorf("feed exceeds maximum size of %d bytes", MaxFeedSize)
		}

		doc, err := Parse(body, detectFormat(feedURL, resp.Header().Get("Content-Type")))
		if err != nil {
			return nil, err
		}
		if doc.Name == "" {
			doc.Name = feedURL
		}
		return doc, nil
	})
}

// BreakerState exposes the download breaker state
func (f *Fetcher) BreakerState() resilience.State {
	return f.breaker.State()
}

func detectFormat(feedURL, contentType string) Format {
	if u, err := url.Parse(feedURL); err == nil {
		if format, ok := FormatFromPath(u.Path); ok {
			return format
		}
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML
	case "application/toml", "text/toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}
