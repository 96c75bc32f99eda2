package httpclient

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// CheckRetry retries throttling and gateway failures plus anything the
// default policy treats as a transport error. Other 4xx and 5xx responses
// are final.
func CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return shouldRetryStatus(resp.StatusCode), nil
}

func shouldRetryStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
