package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/senoxone/qbshop/internal/logging"
)

// Fetcher retrieves a page and reports the HTTP status with the body.
// Transient transport failures are retried internally; HTTP error statuses
// are returned to the caller untouched.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (int, string, error)
}

// Options parameterise the catalog HTTP client.
type Options struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

// Client fetches retailer pages with bounded retries.
type Client struct {
	opts   Options
	http   *resty.Client
	logger zerolog.Logger
}

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 4

	// Escalating retry wait, capped. The ceiling keeps a flaky site from
	// stretching one cycle past its politeness budget.
	retryWaitBase = 2500 * time.Millisecond
	retryWaitMax  = 10 * time.Second
)

// New constructs a Client.
func New(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	lg := logging.Component(logger, "fetcher")

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries - 1).
		SetRetryWaitTime(retryWaitBase).
		SetRetryMaxWaitTime(retryWaitMax).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only transport-level failures (timeouts, refused
			// connections) are transient. Anything the server
			// answered is final.
			return err != nil
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			lg.Warn().Err(err).Str("url", r.Request.URL).Msg("retrying transient fetch failure")
		})

	ua := opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36"
	}
	client.SetHeaders(map[string]string{
		"User-Agent":      ua,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.7,en;q=0.6",
		"Connection":      "keep-alive",
		"Referer":         "https://www.google.com/",
	})

	return &Client{opts: opts, http: client, logger: lg}
}

// Fetch retrieves a single URL.
func (c *Client) Fetch(ctx context.Context, url string) (int, string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return resp.StatusCode(), string(resp.Body()), nil
}

var _ Fetcher = (*Client)(nil)
