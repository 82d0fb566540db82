package portals

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production marketplace API root.
	DefaultBaseURL = "https://portal-market.com/api"

	userAgent      = "Mozilla/5.0"
	requestTimeout = time.Second * 10

	readRetries   = 3
	retryBaseWait = time.Millisecond * 250
)

// TransportError is any failure at the HTTP layer. Status is the response
// status code, or 0 when the request produced no response at all (timeout,
// DNS failure, connection reset).
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %s", e.Err)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether a read call may safely repeat the request.
// Client errors (4xx) fail the same way again and are not retried.
func (e *TransportError) Retryable() bool {
	return e.Status == 0 || e.Status >= 500
}

// Client is an authenticated session against the marketplace API. All reads
// go through the shared rate limiter when one is set; the purchase path does
// not queue behind it.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient builds a session carrying the headers the marketplace expects on
// every call. Connections are reused across requests.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Authorization", token).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// SetLimiter installs a token bucket gating every read request. One limiter
// is shared across all workers of a process.
func (c *Client) SetLimiter(l *rate.Limiter) { c.limiter = l }

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) { c.http.SetTimeout(d) }

// Close releases idle connections held by the session.
func (c *Client) Close() { c.http.GetClient().CloseIdleConnections() }

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Err: err}
		}
	}
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
	return classify(resp, err)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	return classify(resp, err)
}

// getRetry repeats a read on retryable transport errors with exponential
// backoff. Write calls must never go through here.
func (c *Client) getRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	wait := retryBaseWait
	var body []byte
	var err error
	for attempt := 0; attempt < readRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &TransportError{Err: ctx.Err()}
			case <-time.After(wait):
			}
			wait *= 2
		}
		body, err = c.get(ctx, path, query)
		if err == nil {
			return body, nil
		}
		var te *TransportError
		if !errors.As(err, &te) || !te.Retryable() {
			return nil, err
		}
	}
	return nil, err
}

func classify(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &TransportError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}
