package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/compozy/flowctl/pkg/listing"
	"github.com/compozy/flowctl/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const (
	apiVersionPath    = "/v1"
	defaultTimeout    = 30 * time.Second
	defaultCatalogTTL = 5 * time.Minute
	catalogKey        = "catalog"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	CatalogTTL time.Duration
	Debug      bool
	Logger     logger.Logger
}

// Client talks to the platform REST API. Every failure is returned as a
// *listing.TransportError or *listing.ServerError.
type Client struct {
	http    *resty.Client
	baseURL string
	log     logger.Logger
	catalog *expirable.LRU[string, []PieceSummary]
	group   singleflight.Group
}

func NewClient(opts Options) (*Client, error) {
	baseURL, err := normalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = defaultCatalogTTL
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger(logger.TestConfig())
	}
	return &Client{
		http:    buildHTTPClient(baseURL, opts),
		baseURL: baseURL,
		log:     opts.Logger,
		catalog: expirable.NewLRU[string, []PieceSummary](1, nil, opts.CatalogTTL),
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("server URL must be absolute, got: %q", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("server URL scheme must be http or https, got: %s", parsed.Scheme)
	}
	return parsed.String(), nil
}

func buildHTTPClient(baseURL string, opts Options) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL+apiVersionPath).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader("X-Request-ID", uuid.NewString())
		return nil
	})
	if opts.Debug {
		client.SetDebug(true)
	}
	return client
}

// retryCondition retries idempotent reads only.
func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// WebURL returns the browser URL for path, e.g. "/flows/abc".
func (c *Client) WebURL(path string) string {
	return strings.TrimSuffix(c.baseURL, "/api") + path
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// send executes req and converts failures into the listing error taxonomy.
func (c *Client) send(req *resty.Request, method, path, op string) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug("API request failed", "op", op, "method", method, "path", path, "error", err)
		return nil, &listing.TransportError{Op: op, Err: err}
	}
	c.log.Debug(
		"API request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)
	if resp.IsError() {
		return resp, &listing.ServerError{StatusCode: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}
	return resp, nil
}

// errorMessage extracts a human message from the platform error envelope.
func errorMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"message", "error.message", "error", "params.message", "code"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

func setPaging(req *resty.Request, p listing.FetchRequest) {
	if p.ProjectID != "" {
		req.SetQueryParam("projectId", p.ProjectID)
	}
	if p.Cursor != "" {
		req.SetQueryParam("cursor", p.Cursor)
	}
	if p.Limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", p.Limit))
	}
	if p.Sort != nil {
		req.SetQueryParam("sortBy", p.Sort.Key)
		if p.Sort.Desc {
			req.SetQueryParam("sortOrder", "DESC")
		} else {
			req.SetQueryParam("sortOrder", "ASC")
		}
	}
}

func toPage[T any](p SeekPage[T]) listing.Page[T] {
	items := p.Data
	if items == nil {
		items = []T{}
	}
	return listing.Page[T]{Items: items, NextCursor: p.NextCursor()}
}
