// Package catalog resolves level metadata from the rhythm.cafe orchard API.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
)

const (
	// DefaultBaseURL is the public orchard API.
	DefaultBaseURL = "https://api.rhythm.cafe"

	// DefaultTimeout bounds a single metadata request.
	DefaultTimeout = 30 * time.Second

	levelPathFormat = "/datasette/orchard/level/%s.json"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client is a rate-limited orchard API client.
type Client struct {
	http        *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// New creates a new catalog client.
// Requests are limited to one every two seconds with a burst of 5 so repeated
// force blends cannot flood the API.
func New(logger *slog.Logger, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		logger:      logger,
	}
}

// Close drops idle keep-alive connections to the catalog.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// levelURL builds the metadata URL for id.
func (c *Client) levelURL(id domain.LevelID) string {
	query := url.Values{}
	query.Set("_shape", "array")
	return c.baseURL + fmt.Sprintf(levelPathFormat, url.PathEscape(id.String())) + "?" + query.Encode()
}

// Resolve fetches and parses the metadata of a level.
// Every call performs a fresh request; callers decide whether to retry.
func (c *Client) Resolve(ctx context.Context, id domain.LevelID) (*domain.LevelMetadata, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.CatalogUnavailablef("rate limit wait for level '%s'", id).WithCause(err)
	}

	body, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	meta, err := parseLevel(id, body)
	if err != nil {
		c.logger.Warn("catalog returned unusable metadata",
			"level_id", id,
			"payload", excerpt(body),
			"error", err,
		)
		return nil, err
	}

	return meta, nil
}

// fetch performs the GET and maps HTTP status codes to domain errors.
func (c *Client) fetch(ctx context.Context, id domain.LevelID) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.levelURL(id), nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "create catalog request for '%s'", id)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "DailyBlend/1.0")

	c.logger.Debug("catalog request", "level_id", id, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.CatalogUnavailablef("failed to fetch level metadata from rhythm.cafe").WithCause(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.LevelNotFound(id.String())
	default:
		// The body only adds context here, a failed read is not worth reporting.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, excerptLimit))
		return nil, errors.CatalogUnavailablef("failed to fetch level metadata from rhythm.cafe").
			WithDetails(map[string]any{"status": resp.StatusCode, "body": string(body)})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.CatalogUnavailablef("failed to read level metadata from rhythm.cafe").WithCause(err)
	}
	return body, nil
}
