// Package httpx holds the request, error and stream plumbing shared by the
// embedding and LLM provider adapters.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 4 << 10

// PostJSON marshals body and sends it as a JSON POST request.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

// Get sends a GET request and fails on any non-200 status.
// Adapters use it for their connectivity checks.
func Get(ctx context.Context, client *http.Client, provider, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create ping request: %w", provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: ping failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusError(provider, resp)
	}
	return nil
}

// StatusError describes a non-200 response, quoting the start of its body.
func StatusError(provider string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s: API returned status %d (failed to read body: %w)", provider, resp.StatusCode, err)
	}
	return fmt.Errorf("%s: API returned status %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}

// ServiceError tags err with the service sentinel. When the failure is a
// timeout, ErrServiceTimeout is joined in as well. ctx is the bounded
// request context, if any.
func ServiceError(ctx context.Context, service, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(ctx, err) {
		return errors.Join(service, domain.ErrServiceTimeout, err)
	}
	return fmt.Errorf("%w: %w", service, err)
}

// IsTimeout reports whether err (or the request context) hit a deadline.
func IsTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// NewLimiter returns a limiter allowing rps requests per second, or nil
// when rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the limiter admits one request. A nil limiter never blocks.
func Wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
