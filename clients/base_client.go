package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BaseClient is the shared HTTP layer for remote service clients. All
// failures are normalized into *FetchError so callers never see raw
// transport errors.
type BaseClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	headers map[string]string
}

func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: 10 * time.Second,
		headers: make(map[string]string),
	}
}

func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout sets the default per-request deadline. It is applied through
// the request context, not http.Client.Timeout, so a caller-supplied
// deadline is never capped by it.
func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// BaseURL returns the service origin, used to resolve relative asset paths.
func (c *BaseClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET against endpoint (path plus encoded query) and returns
// the response body, or a *FetchError classifying the failure.
func (c *BaseClient) Get(ctx context.Context, endpoint string) ([]byte, error) {
	// The default deadline applies only when the caller brought none, so
	// endpoints with their own bound (the robots fetch allows more) are not
	// cut short.
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		kind := FailNetwork
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			kind = FailTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = FailTimeout
		}
		return nil, &FetchError{Kind: kind, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Kind: FailHTTPStatus, Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FailNetwork, Endpoint: endpoint, Err: err}
	}

	return body, nil
}
