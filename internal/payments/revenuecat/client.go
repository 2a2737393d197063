package revenuecat

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
)

const (
	defaultBaseURL     = "https://api.revenuecat.com/v1"
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// Client is a thin RevenueCat REST API v1 binding. Transient failures (429,
// 5xx) are retried with exponential backoff; a Retry-After hint from the
// vendor overrides the computed delay.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
}

// ClientParams configures the REST client.
type ClientParams struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// HTTPClient overrides the default client, for tests.
	HTTPClient *http.Client
}

// NewClient validates params and builds the client.
func NewClient(params ClientParams) (*Client, error) {
	if params.APIKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "revenuecat api key required")
	}
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     params.APIKey,
		httpClient: httpClient,
		maxRetries: uint64(maxRetries),
	}, nil
}

// apiError is a non-2xx vendor response.
type apiError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *apiError) Error() string {
	return fmt.Sprintf("revenuecat api status %d: %s", e.StatusCode, e.Body)
}

func (e *apiError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// GetSubscriber fetches (and implicitly creates) the subscriber for an app
// user id. RevenueCat returns 201 with an empty subscriber for unknown ids,
// so this call never 404s for well-formed ids.
func (c *Client) GetSubscriber(ctx context.Context, appUserID string) (*Subscriber, error) {
	var out subscriberResponse
	err := c.do(ctx, http.MethodGet, "/subscribers/"+url.PathEscape(appUserID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out.Subscriber, nil
}

// UpdateSubscriberAttributes sets reserved attributes like $email on the
// subscriber record.
func (c *Client) UpdateSubscriberAttributes(ctx context.Context, appUserID string, attributes map[string]string) error {
	body := map[string]map[string]attributeValue{"attributes": {}}
	for key, value := range attributes {
		body["attributes"][key] = attributeValue{Value: value}
	}
	return c.do(ctx, http.MethodPost, "/subscribers/"+url.PathEscape(appUserID)+"/attributes", body, nil)
}

type attributeValue struct {
	Value string `json:"value"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode revenuecat request")
		}
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(defaultBackoffBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, payload, out)
		var vendorErr *apiError
		if stderrors.As(err, &vendorErr) && vendorErr.retryable() {
			if vendorErr.RetryAfter > 0 {
				// The vendor told us when to come back; sleeping here keeps
				// the backoff schedule from retrying too early.
				select {
				case <-time.After(vendorErr.RetryAfter):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build revenuecat request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revenuecat request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read revenuecat response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode revenuecat response")
		}
	}
	return nil
}

func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
