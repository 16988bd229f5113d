package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/sells-group/lead-master/internal/resilience"
)

// retryingProvider wraps a Provider with transient-failure retries.
type retryingProvider struct {
	inner Provider
	cfg   resilience.RetryConfig
}

// WithRetry wraps a provider so rate limits and 5xx responses are
// retried with backoff.
func WithRetry(p Provider) Provider {
	cfg := resilience.DefaultRetryConfig()
	cfg.ShouldRetry = isRetryableCompletion
	cfg.OnRetry = resilience.RetryLogger(p.Name(), "complete")
	return &retryingProvider{inner: p, cfg: cfg}
}

func (r *retryingProvider) Name() string { return r.inner.Name() }

func (r *retryingProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	return resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (*Response, error) {
		return r.inner.Complete(ctx, req)
	})
}

func isRetryableCompletion(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode)
	}

	// The anthropic SDK surfaces the status code in the error text.
	msg := err.Error()
	for _, code := range []int{429, 500, 502, 503, 529} {
		if strings.Contains(msg, strconv.Itoa(code)) {
			return true
		}
	}
	return resilience.IsTransient(err)
}
