package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// Client sends a single outbound request. Statuses >= 400 come back as *Error.
type Client interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

type RetryableClient struct {
	client *retryablehttp.Client
}

// NewRetryableClient retries transport failures and the statuses accepted by
// CheckRetry, at most Webhook.MaxRetries times
func NewRetryableClient(cfg *config.Configuration, logger *logger.Logger) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Webhook.MaxRetries
	rc.RetryWaitMin, rc.RetryWaitMax = 500*time.Millisecond, 10*time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = logger.GetRetryableHTTPLogger()
	rc.CheckRetry = CheckRetry
	return &RetryableClient{client: rc}
}

func (c *RetryableClient) newRequest(ctx context.Context, req *Request) (*retryablehttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	out, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		out.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		out.Header.Set(k, v)
	}
	return out, nil
}

func (c *RetryableClient) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invalid outbound request to %s", req.URL).
			Mark(ierr.ErrHTTPClient)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Request failed after retries").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read response body").
			Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, NewError(resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    firstValues(resp.Header),
	}, nil
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
